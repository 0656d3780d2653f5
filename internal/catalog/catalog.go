package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"price-machine/internal/domain"
	"price-machine/internal/normalizer"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// ErrDivisionByZero is reported for matched records whose weight is zero
var ErrDivisionByZero = errors.New("division by zero weight")

// unitPricePlaces is the number of decimal places unit prices are rounded to
const unitPricePlaces = 2

// IngestReport summarises one AddFile call
type IngestReport struct {
	File     string
	Accepted int
	Rejected int
	Errors   []error
}

// Result is the outcome of a Find call
type Result struct {
	Query      string
	Records    []domain.PricedRecord
	ZeroWeight int
	skipped    []domain.PriceRecord
}

// Warnings returns one ErrDivisionByZero-wrapping error per record that was
// left out of the result
func (r Result) Warnings() []error {
	out := make([]error, 0, len(r.skipped))
	for _, rec := range r.skipped {
		out = append(out, fmt.Errorf("%w: %q from %s", ErrDivisionByZero, rec.Name, rec.SourceFile))
	}
	return out
}

// Catalog owns every record ingested during the process lifetime.
// It is not safe for concurrent use.
type Catalog struct {
	records []domain.PriceRecord
	files   []string
	last    Result
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		last: Result{Records: []domain.PricedRecord{}},
	}
}

// AddFile normalizes rows of one price list and appends the accepted records
// in input order. Rejected rows are counted, never fatal.
func (c *Catalog) AddFile(fileName string, headers []string, rows []map[string]string) IngestReport {
	report := IngestReport{File: fileName}

	for i, row := range rows {
		rec, err := normalizer.Normalize(fileName, headers, row)
		if err != nil {
			report.Rejected++
			report.Errors = append(report.Errors, fmt.Errorf("%s row %d: %w", fileName, i+1, err))
			continue
		}
		c.records = append(c.records, *rec)
		report.Accepted++
	}

	c.files = append(c.files, fileName)
	return report
}

// Find returns records whose name contains text, case-insensitively, ranked
// by ascending unit price. Equal unit prices keep insertion order. Records with
// zero weight are left out and counted in ZeroWeight.
func (c *Catalog) Find(text string) Result {
	fold := cases.Fold()
	needle := fold.String(text)

	result := Result{
		Query:   text,
		Records: []domain.PricedRecord{},
	}

	for _, rec := range c.records {
		if !strings.Contains(fold.String(rec.Name), needle) {
			continue
		}

		priced, err := price(rec)
		if err != nil {
			result.ZeroWeight++
			result.skipped = append(result.skipped, rec)
			continue
		}
		result.Records = append(result.Records, priced)
	}

	slices.SortStableFunc(result.Records, func(a, b domain.PricedRecord) int {
		return a.UnitPrice.Cmp(b.UnitPrice)
	})

	c.last = result.clone()
	return result
}

// Last returns the result of the most recent Find
func (c *Catalog) Last() Result {
	return c.last.clone()
}

// Len returns the number of ingested records
func (c *Catalog) Len() int {
	return len(c.records)
}

// Empty reports whether nothing has been ingested yet
func (c *Catalog) Empty() bool {
	return len(c.records) == 0
}

// Files returns the names passed to AddFile, in call order
func (c *Catalog) Files() []string {
	return slices.Clone(c.files)
}

func (r Result) clone() Result {
	r.Records = slices.Clone(r.Records)
	r.skipped = slices.Clone(r.skipped)
	return r
}

func price(rec domain.PriceRecord) (domain.PricedRecord, error) {
	if rec.Weight == 0 {
		return domain.PricedRecord{}, ErrDivisionByZero
	}

	unit := rec.Price.Div(decimal.NewFromInt(int64(rec.Weight))).Round(unitPricePlaces)
	return domain.PricedRecord{PriceRecord: rec, UnitPrice: unit}, nil
}
