package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"price-machine/internal/catalog"
	"price-machine/internal/loader"
	"price-machine/internal/report"

	"go.uber.org/zap"
)

// ErrNothingToExport is returned by Export before any search has run
var ErrNothingToExport = errors.New("no search result to export")

// CatalogStats describes what the catalog currently holds
type CatalogStats struct {
	Files   []string `json:"files"`
	Records int      `json:"records"`
}

// PriceService defines the operations the CLI and HTTP layers use
type PriceService interface {
	LoadDir(ctx context.Context, dir string) (loader.Summary, error)
	Search(query string) catalog.Result
	Last() catalog.Result
	Stats() CatalogStats
	Export(path string) error
}

type priceService struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	loader  *loader.Loader
	logger  *zap.Logger
	// searched is set once Search has run, so an empty Last is exportable
	searched bool
}

// NewPriceService creates a PriceService over an empty catalog
func NewPriceService(l *loader.Loader, logger *zap.Logger) PriceService {
	return &priceService{
		catalog: catalog.New(),
		loader:  l,
		logger:  logger,
	}
}

// LoadDir ingests every price list found under dir
func (s *priceService) LoadDir(ctx context.Context, dir string) (loader.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.loader.LoadDir(ctx, dir, s.catalog)
	if err != nil {
		return summary, fmt.Errorf("failed to load price lists: %w", err)
	}

	s.logger.Info("Loading finished",
		zap.String("batch_id", summary.BatchID.String()),
		zap.Int("files", len(summary.Files)),
		zap.Int("failed_files", len(summary.FailedFiles)),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
		zap.Int("records", s.catalog.Len()),
	)
	return summary, nil
}

// Search runs a ranked substring query and remembers it for Export
func (s *priceService) Search(query string) catalog.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.catalog.Find(query)
	s.searched = true

	if result.ZeroWeight > 0 {
		for _, w := range result.Warnings() {
			s.logger.Warn("Record left out of result", zap.Error(w))
		}
	}
	s.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("matches", len(result.Records)),
		zap.Int("zero_weight", result.ZeroWeight),
	)
	return result
}

// Last returns the most recent search result
func (s *priceService) Last() catalog.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.catalog.Last()
}

// Stats returns the ingested file names and record count
func (s *priceService) Stats() CatalogStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CatalogStats{
		Files:   s.catalog.Files(),
		Records: s.catalog.Len(),
	}
}

// Export writes the most recent search result as an HTML report
func (s *priceService) Export(path string) error {
	s.mu.Lock()
	searched := s.searched
	last := s.catalog.Last()
	s.mu.Unlock()

	if !searched {
		return ErrNothingToExport
	}

	if err := report.ExportHTML(path, last.Records); err != nil {
		s.logger.Error("Failed to export report", zap.String("path", path), zap.Error(err))
		return err
	}

	s.logger.Info("Report exported", zap.String("path", path), zap.Int("rows", len(last.Records)))
	return nil
}
