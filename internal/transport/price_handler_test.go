package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"price-machine/internal/catalog"
	"price-machine/internal/loader"
	"price-machine/internal/middleware"
	"price-machine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// mockPriceService serves searches from an in-memory catalog
type mockPriceService struct {
	catalog *catalog.Catalog
	queries []string
}

func newMockPriceService() *mockPriceService {
	c := catalog.New()
	c.AddFile("price_0.csv", []string{"товар", "цена", "вес"}, []map[string]string{
		{"товар": "Яблоко красное", "цена": "150", "вес": "1"},
		{"товар": "Яблоко зелёное", "цена": "200", "вес": "2"},
		{"товар": "Яблоко <сушёное>", "цена": "90", "вес": "0"},
		{"товар": "Картофель", "цена": "40", "вес": "5"},
	})
	return &mockPriceService{catalog: c}
}

func (m *mockPriceService) LoadDir(ctx context.Context, dir string) (loader.Summary, error) {
	return loader.Summary{}, nil
}

func (m *mockPriceService) Search(query string) catalog.Result {
	m.queries = append(m.queries, query)
	return m.catalog.Find(query)
}

func (m *mockPriceService) Last() catalog.Result {
	return m.catalog.Last()
}

func (m *mockPriceService) Stats() service.CatalogStats {
	return service.CatalogStats{Files: m.catalog.Files(), Records: m.catalog.Len()}
}

func (m *mockPriceService) Export(path string) error {
	return nil
}

func setupRouter(svc service.PriceService) *chi.Mux {
	router := chi.NewRouter()
	NewPriceHandler(svc, zap.NewNop()).RegisterRoutes(router)
	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestSearch_ReturnsRankedItems(t *testing.T) {
	router := setupRouter(newMockPriceService())

	w := get(router, "/api/prices?q="+url.QueryEscape("ЯБЛОКО"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].Name != "Яблоко зелёное" || resp.Items[0].UnitPrice != "100.00" {
		t.Errorf("Unexpected first item: %+v", resp.Items[0])
	}
	if resp.Items[1].Price != "150.00" || resp.Items[1].SourceFile != "price_0.csv" {
		t.Errorf("Unexpected second item: %+v", resp.Items[1])
	}
	if resp.ZeroWeight != 1 {
		t.Errorf("Expected zero_weight 1, got %d", resp.ZeroWeight)
	}
}

func TestSearch_MissingQueryMatchesEverything(t *testing.T) {
	router := setupRouter(newMockPriceService())

	var resp SearchResponse
	w := get(router, "/api/prices")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("Expected 3 items, got %d", resp.Total)
	}
	if resp.Items[0].Name != "Картофель" {
		t.Errorf("Expected cheapest per kilogram first, got %s", resp.Items[0].Name)
	}
}

func TestSearch_NoMatchReturnsEmptyList(t *testing.T) {
	router := setupRouter(newMockPriceService())

	w := get(router, "/api/prices?q=nothing")
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("Expected empty items array, got %s", w.Body.String())
	}
}

func TestSearch_RejectsLongQuery(t *testing.T) {
	svc := newMockPriceService()
	router := setupRouter(svc)

	w := get(router, "/api/prices?q="+strings.Repeat("x", 201))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}

	var resp middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, ok := resp.Error.Details["validation_errors"]; !ok {
		t.Error("Expected validation_errors in details")
	}
	if len(svc.queries) != 0 {
		t.Error("Invalid query should not reach the service")
	}
}

func TestReport_RendersHTML(t *testing.T) {
	router := setupRouter(newMockPriceService())

	w := get(router, "/report?q="+url.QueryEscape("картофель"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Unexpected content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<td>Картофель</td>") {
		t.Errorf("Report does not contain the match: %s", w.Body.String())
	}
}

func TestFiles_ListsIngestedFiles(t *testing.T) {
	router := setupRouter(newMockPriceService())

	var stats service.CatalogStats
	w := get(router, "/api/files")
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Records != 4 || len(stats.Files) != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestProperty_SearchIsCaseInsensitive(t *testing.T) {
	router := setupRouter(newMockPriceService())
	properties := gopter.NewProperties(nil)

	properties.Property("upper and lower case queries return the same items", prop.ForAll(
		func(query string) bool {
			var lower, upper SearchResponse
			if err := json.Unmarshal(get(router, "/api/prices?q="+url.QueryEscape(strings.ToLower(query))).Body.Bytes(), &lower); err != nil {
				return false
			}
			if err := json.Unmarshal(get(router, "/api/prices?q="+url.QueryEscape(strings.ToUpper(query))).Body.Bytes(), &upper); err != nil {
				return false
			}
			if lower.Total != upper.Total {
				return false
			}
			for i := range lower.Items {
				if lower.Items[i] != upper.Items[i] {
					return false
				}
			}
			return true
		},
		gen.OneConstOf("яблоко", "Картоф", "зелёное", "", "ОКО"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
