package services

import (
	"context"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/integrations/drive"
	"passagens/internal/utils"
)

// StorageService copies rendered tickets to the configured file store.
type StorageService struct {
	Docs      DocsService
	Uploader  FileUploader
	RequestID string
}

// Enabled reports whether a file store is configured.
func (s StorageService) Enabled() bool {
	return s.Uploader != nil
}

// UploadTicket renders the ticket for bookingID and stores it.
func (s StorageService) UploadTicket(ctx context.Context, bookingID string, identity *models.Identity) (drive.UploadResult, error) {
	if !s.Enabled() {
		return drive.UploadResult{}, domain.DomainError{Code: "storage_disabled", Err: domain.ErrStorageDisabled}
	}
	pdf, filename, err := s.Docs.GenerateTicket(ctx, bookingID, identity)
	if err != nil {
		return drive.UploadResult{}, err
	}
	res, err := s.Uploader.Upload(ctx, filename, "application/pdf", pdf)
	if err != nil {
		utils.LogError(s.RequestID, "storage", "upload", err)
		return drive.UploadResult{}, err
	}
	utils.LogEvent(s.RequestID, "storage", "upload", filename+" -> "+res.FileID)
	return res, nil
}
