package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"spendtrack/internal/amqp"
	"spendtrack/internal/importer"
)

// ImportService runs the CSV pipeline and announces finished imports on the
// event queue.
type ImportService struct {
	pipeline  *importer.Pipeline
	publisher Publisher
}

func NewImportService(pipeline *importer.Pipeline, publisher Publisher) *ImportService {
	return &ImportService{pipeline: pipeline, publisher: publisher}
}

// ImportReport is one finished import run.
type ImportReport struct {
	ImportID      string `json:"importId"`
	ImportedCount int    `json:"importedCount"`
	SkippedCount  int    `json:"skippedCount"`
}

// ImportFile imports the CSV at path for userID. The file is consumed: the
// pipeline removes it whether the import succeeds or not.
func (s *ImportService) ImportFile(ctx context.Context, userID int64, path string) (ImportReport, error) {
	importID := uuid.NewString()

	res, err := s.pipeline.ImportFile(ctx, userID, path)
	report := ImportReport{
		ImportID:      importID,
		ImportedCount: res.ImportedCount,
		SkippedCount:  res.SkippedCount,
	}
	if err != nil {
		return report, fmt.Errorf("import %s: %w", importID, err)
	}

	s.publishCompleted(ctx, userID, importID, res.ImportedCount)
	return report, nil
}

func (s *ImportService) publishCompleted(ctx context.Context, userID int64, importID string, imported int) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping import completed event")
		return
	}
	msg := amqp.NewImportCompletedMessage(userID, importID, imported)
	if err := s.publisher.PublishEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed event",
			"user_id", userID, "import_id", importID, "error", err)
	}
}
