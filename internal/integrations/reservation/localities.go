package reservation

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"passagens/internal/domain/models"
)

//go:embed localities.json
var defaultLocalities []byte

// DefaultLocalities is the directory bundled with the binary.
func DefaultLocalities() ([]models.Locality, error) {
	var out []models.Locality
	if err := json.Unmarshal(defaultLocalities, &out); err != nil {
		return nil, fmt.Errorf("decode bundled localities: %w", err)
	}
	return out, nil
}

// LoadLocalities picks the directory source: a JSON file when path is set,
// the reservation system when configured, otherwise the bundled list.
func LoadLocalities(ctx context.Context, path string, c *Client) ([]models.Locality, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read localities file: %w", err)
		}
		var out []models.Locality
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode localities file: %w", err)
		}
		return out, nil
	}
	if c.Enabled() {
		return c.Localities(ctx)
	}
	return DefaultLocalities()
}
