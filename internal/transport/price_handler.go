package transport

import (
	"bytes"
	"net/http"

	"price-machine/internal/catalog"
	"price-machine/internal/domain"
	"price-machine/internal/middleware"
	"price-machine/internal/report"
	"price-machine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SearchRequest represents the query parameters of a search
type SearchRequest struct {
	Query string `validate:"max=200"`
}

// PriceItem is one ranked row of a search response
type PriceItem struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	Weight     int    `json:"weight"`
	UnitPrice  string `json:"unit_price"`
	SourceFile string `json:"source_file"`
}

// SearchResponse represents a ranked search result
type SearchResponse struct {
	Query      string      `json:"query"`
	Total      int         `json:"total"`
	ZeroWeight int         `json:"zero_weight"`
	Items      []PriceItem `json:"items"`
}

// PriceHandler serves catalog searches over HTTP
type PriceHandler struct {
	priceService service.PriceService
	logger       *zap.Logger
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(priceService service.PriceService, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
		logger:       logger,
	}
}

// RegisterRoutes registers the catalog routes
func (h *PriceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", h.Search)
		r.Get("/files", h.Files)
	})
	r.Get("/report", h.Report)
}

// Search handles ranked substring queries
func (h *PriceHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, ok := h.search(w, r)
	if !ok {
		return
	}

	items := make([]PriceItem, 0, len(result.Records))
	for _, rec := range result.Records {
		items = append(items, toItem(rec))
	}

	middleware.RespondWithJSON(w, http.StatusOK, SearchResponse{
		Query:      result.Query,
		Total:      len(items),
		ZeroWeight: result.ZeroWeight,
		Items:      items,
	})
}

// Report renders a search as the HTML report
func (h *PriceHandler) Report(w http.ResponseWriter, r *http.Request) {
	result, ok := h.search(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, result.Records); err != nil {
		h.logger.Error("Failed to render report", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Files lists the ingested price lists
func (h *PriceHandler) Files(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.priceService.Stats())
}

func (h *PriceHandler) search(w http.ResponseWriter, r *http.Request) (catalog.Result, bool) {
	req := SearchRequest{Query: middleware.QueryValue(r, "q", "")}

	if err := middleware.ValidateRequest(req); err != nil {
		h.logger.Debug("Search validation failed", zap.Error(err))
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return catalog.Result{}, false
	}

	return h.priceService.Search(req.Query), true
}

func toItem(rec domain.PricedRecord) PriceItem {
	return PriceItem{
		Name:       rec.Name,
		Price:      rec.Price.StringFixed(2),
		Weight:     rec.Weight,
		UnitPrice:  rec.UnitPrice.StringFixed(2),
		SourceFile: rec.SourceFile,
	}
}
