package normalizer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"price-machine/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	// ErrRowRejected marks a row that cannot become a PriceRecord
	ErrRowRejected   = errors.New("row rejected")
	ErrMissingField  = errors.New("missing field")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidWeight = errors.New("invalid weight")
)

// Prices outside these bounds are rejected. Scaling a decimal with an extreme
// exponent allocates a coefficient of that many digits.
const (
	maxPriceIntegerDigits  = 18
	maxPriceFractionDigits = 18
)

// aliases maps each column role to the header texts accepted for it.
// Matching is exact and case-sensitive.
var aliases = map[domain.ColumnRole]map[string]struct{}{
	domain.RoleProductName: set("товар", "название", "наименование", "продукт"),
	domain.RoleUnitPrice:   set("розница", "цена"),
	domain.RoleUnitWeight:  set("вес", "масса", "фасовка"),
}

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// RoleOf returns the column role a header maps to
func RoleOf(header string) (domain.ColumnRole, bool) {
	for _, role := range domain.Roles {
		if _, ok := aliases[role][header]; ok {
			return role, true
		}
	}
	return 0, false
}

// Aliases returns the accepted header texts for a role, sorted
func Aliases(role domain.ColumnRole) []string {
	out := make([]string, 0, len(aliases[role]))
	for a := range aliases[role] {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Recognized returns the headers that map to a role, keyed by role.
// When several headers map to one role the last one is reported.
func Recognized(headers []string) map[domain.ColumnRole]string {
	out := make(map[domain.ColumnRole]string, len(domain.Roles))
	for _, h := range headers {
		if role, ok := RoleOf(h); ok {
			out[role] = h
		}
	}
	return out
}

// accumulator collects the canonical fields of a single row
type accumulator struct {
	name      string
	price     decimal.Decimal
	weight    int
	hasName   bool
	hasPrice  bool
	hasWeight bool
}

// Normalize maps one raw row onto a PriceRecord.
// Headers that match no alias are ignored. If several headers map to the same
// role the last one wins, but every one of them must parse.
func Normalize(fileName string, headers []string, row map[string]string) (*domain.PriceRecord, error) {
	var acc accumulator

	for _, header := range headers {
		role, ok := RoleOf(header)
		if !ok {
			continue
		}

		raw, present := row[header]
		if !present {
			continue
		}

		switch role {
		case domain.RoleProductName:
			acc.name = raw
			acc.hasName = true
		case domain.RoleUnitPrice:
			price, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: %w: column %q value %q", ErrRowRejected, ErrInvalidPrice, header, raw)
			}
			if !priceInRange(price) {
				return nil, fmt.Errorf("%w: %w: column %q value %q out of range", ErrRowRejected, ErrInvalidPrice, header, raw)
			}
			acc.price = price
			acc.hasPrice = true
		case domain.RoleUnitWeight:
			weight, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: %w: column %q value %q", ErrRowRejected, ErrInvalidWeight, header, raw)
			}
			acc.weight = weight
			acc.hasWeight = true
		}
	}

	switch {
	case !acc.hasName:
		return nil, fmt.Errorf("%w: %w: %s", ErrRowRejected, ErrMissingField, domain.RoleProductName)
	case !acc.hasPrice:
		return nil, fmt.Errorf("%w: %w: %s", ErrRowRejected, ErrMissingField, domain.RoleUnitPrice)
	case !acc.hasWeight:
		return nil, fmt.Errorf("%w: %w: %s", ErrRowRejected, ErrMissingField, domain.RoleUnitWeight)
	}

	return &domain.PriceRecord{
		Name:       acc.name,
		Price:      acc.price,
		Weight:     acc.weight,
		SourceFile: fileName,
	}, nil
}

func priceInRange(price decimal.Decimal) bool {
	exp := int64(price.Exponent())
	if exp < -maxPriceFractionDigits {
		return false
	}
	return int64(price.NumDigits())+exp <= maxPriceIntegerDigits
}
