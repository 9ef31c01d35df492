// Package reservation talks to the bus operator's reservation system:
// locality directory, trip search and seat maps.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

const serviceName = "reserva"

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a base URL was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.BaseURL != ""
}

func (c *Client) Localities(ctx context.Context) ([]models.Locality, error) {
	var out []models.Locality
	if err := c.get(ctx, "/localities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchTrips lists the departures matching crit. An empty slice is a valid answer.
func (c *Client) SearchTrips(ctx context.Context, crit models.SearchCriteria) ([]models.TripOption, error) {
	q := url.Values{}
	q.Set("origin_id", strconv.Itoa(crit.OriginID))
	q.Set("destination_id", strconv.Itoa(crit.DestinationID))
	q.Set("date", crit.Date)

	var out []models.TripOption
	if err := c.get(ctx, "/trips", q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.TripOption{}
	}
	return out, nil
}

// SeatMap returns capacity and occupied seats of a trip.
func (c *Client) SeatMap(ctx context.Context, tripID string) (models.SeatMap, error) {
	var out models.SeatMap
	if err := c.get(ctx, "/trips/"+url.PathEscape(tripID)+"/seats", nil, &out); err != nil {
		return models.SeatMap{}, err
	}
	if out.TripID == "" {
		out.TripID = tripID
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	if !c.Enabled() {
		return lookupError(fmt.Errorf("reservation system not configured"))
	}
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return lookupError(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return lookupError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return lookupError(fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return lookupError(fmt.Errorf("GET %s: decode: %w", path, err))
	}
	return nil
}

func lookupError(err error) error {
	return domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("%w: %v", domain.ErrLookupFailure, err)}
}
