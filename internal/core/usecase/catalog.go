package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/core/ports"
)

// CatalogUseCase keeps the serving catalog in step with its source sheet.
// Source and Writer are set together when the catalog is served from a
// database; Cache is set whenever reads go through a snapshot.
type CatalogUseCase struct {
	source ports.CatalogStore
	writer ports.CatalogWriter
	cache  ports.CatalogInvalidator
	logger *slog.Logger
}

type CatalogOptions struct {
	Source ports.CatalogStore
	Writer ports.CatalogWriter
	Cache  ports.CatalogInvalidator
	Logger *slog.Logger
}

func NewCatalogUseCase(options CatalogOptions) *CatalogUseCase {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &CatalogUseCase{
		source: options.Source,
		writer: options.Writer,
		cache:  options.Cache,
		logger: options.Logger,
	}
}

// RefreshCatalog copies the source into the writer when both are wired, then
// invalidates the snapshot so entity resolution sees the new records.
func (uc *CatalogUseCase) RefreshCatalog(ctx context.Context) (*domain.CatalogRefreshReport, error) {
	report := &domain.CatalogRefreshReport{}
	if uc.source != nil && uc.writer != nil {
		records, err := uc.source.ListRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("read catalog source: %w", err)
		}
		if err := uc.writer.UpsertRecords(ctx, records); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "write catalog", err)
		}
		report.Imported = len(records)
	}
	if uc.cache != nil {
		uc.cache.Invalidate()
		report.Invalidated = true
	}
	uc.logger.Info("catalog_refreshed", "imported", report.Imported, "invalidated", report.Invalidated)
	return report, nil
}
