package catalog

import (
	"errors"
	"strconv"
	"testing"

	"price-machine/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headers = []string{"товар", "цена", "вес"}

func row(name, price, weight string) map[string]string {
	return map[string]string{"товар": name, "цена": price, "вес": weight}
}

func names(records []domain.PricedRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestFind_RanksByUnitPrice(t *testing.T) {
	c := New()
	report := c.AddFile("price_a.csv", headers, []map[string]string{
		row("A", "100", "2"),
		row("B", "60", "3"),
	})
	require.Equal(t, 2, report.Accepted)

	result := c.Find("")
	require.Len(t, result.Records, 2)
	assert.Equal(t, []string{"B", "A"}, names(result.Records))
	assert.True(t, result.Records[0].UnitPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, result.Records[1].UnitPrice.Equal(decimal.NewFromInt(50)))
}

func TestFind_RoundsToTwoPlaces(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{row("Чай", "100", "3")})

	result := c.Find("чай")
	require.Len(t, result.Records, 1)
	assert.Equal(t, "33.33", result.Records[0].UnitPrice.StringFixed(2))
}

func TestFind_CaseInsensitive(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{
		row("Яблоко красное", "120", "1"),
		row("Груша", "150", "1"),
	})

	upper := c.Find("ЯБЛОКО")
	lower := c.Find("яблоко")

	assert.Equal(t, []string{"Яблоко красное"}, names(upper.Records))
	assert.Equal(t, upper.Records, lower.Records)
}

func TestFind_EmptyCatalog(t *testing.T) {
	c := New()
	assert.True(t, c.Empty())

	result := c.Find("")
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.ZeroWeight)
}

func TestFind_NoMatchIsEmpty(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{row("Сахар", "90", "1")})

	result := c.Find("соль")
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
}

func TestFind_ZeroWeightIsOmitted(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{
		row("C", "10", "0"),
		row("Cc", "10", "1"),
	})

	result := c.Find("C")
	assert.Equal(t, []string{"Cc"}, names(result.Records))
	assert.Equal(t, 1, result.ZeroWeight)

	warnings := result.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrDivisionByZero))
}

func TestFind_TiesKeepInsertionOrder(t *testing.T) {
	c := New()
	c.AddFile("price_1.csv", headers, []map[string]string{
		row("Молоко 1", "80", "1"),
		row("Молоко 2", "160", "2"),
	})
	c.AddFile("price_2.csv", headers, []map[string]string{
		row("Молоко 3", "40", "1"),
		row("Молоко 4", "80", "1"),
	})

	result := c.Find("молоко")
	assert.Equal(t, []string{"Молоко 3", "Молоко 1", "Молоко 2", "Молоко 4"}, names(result.Records))
}

func TestAddFile_CountsRejectedRows(t *testing.T) {
	c := New()
	report := c.AddFile("price.csv", headers, []map[string]string{
		row("Хлеб", "45.5", "1"),
		row("Батон", "abc", "1"),
		{"товар": "Булка", "цена": "30"},
	})

	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 2, report.Rejected)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, 1, c.Len())
}

func TestAddFile_NoDeduplication(t *testing.T) {
	c := New()
	c.AddFile("price_1.csv", headers, []map[string]string{row("Хлеб", "45", "1")})
	c.AddFile("price_2.csv", headers, []map[string]string{row("Хлеб", "45", "1")})

	result := c.Find("хлеб")
	require.Len(t, result.Records, 2)
	assert.Equal(t, "price_1.csv", result.Records[0].SourceFile)
	assert.Equal(t, "price_2.csv", result.Records[1].SourceFile)
	assert.Equal(t, []string{"price_1.csv", "price_2.csv"}, c.Files())
}

func TestLast_ReplacedByEachFind(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{
		row("Рис", "100", "1"),
		row("Гречка", "90", "1"),
	})

	assert.Empty(t, c.Last().Records)

	c.Find("рис")
	assert.Equal(t, []string{"Рис"}, names(c.Last().Records))

	c.Find("гречка")
	assert.Equal(t, []string{"Гречка"}, names(c.Last().Records))
	assert.Equal(t, "гречка", c.Last().Query)
}

func TestLast_IsNotAliasedByCallers(t *testing.T) {
	c := New()
	c.AddFile("price.csv", headers, []map[string]string{
		row("Рис", "100", "1"),
		row("Гречка", "90", "1"),
	})

	result := c.Find("")
	require.Equal(t, []string{"Гречка", "Рис"}, names(result.Records))

	result.Records[0], result.Records[1] = result.Records[1], result.Records[0]
	result.Records[0].Name = "изменено"
	assert.Equal(t, []string{"Гречка", "Рис"}, names(c.Last().Records))

	last := c.Last()
	last.Records[0].Name = "изменено"
	assert.Equal(t, []string{"Гречка", "Рис"}, names(c.Last().Records))
}

func TestAddFile_RejectsOutOfRangePrice(t *testing.T) {
	c := New()
	report := c.AddFile("price.csv", headers, []map[string]string{
		row("Соль", "20", "1"),
		row("Икра", "1e200000000", "1"),
		row("Пыль", "1e-200000000", "1"),
	})

	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 2, report.Rejected)

	result := c.Find("")
	assert.Equal(t, []string{"Соль"}, names(result.Records))
}

func TestProperty_FindIsSortedAndIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("find returns every match ascending by unit price, twice alike", prop.ForAll(
		func(prices []int, query string) bool {
			c := New()
			rows := make([]map[string]string, 0, len(prices))
			for i, p := range prices {
				rows = append(rows, row("товар "+strconv.Itoa(i), strconv.Itoa(p), strconv.Itoa(i%4+1)))
			}
			c.AddFile("price.csv", headers, rows)

			first := c.Find(query)
			second := c.Find(query)

			if len(first.Records) != len(second.Records) {
				return false
			}
			for i := range first.Records {
				if first.Records[i].Name != second.Records[i].Name {
					return false
				}
				if i > 0 && first.Records[i-1].UnitPrice.GreaterThan(first.Records[i].UnitPrice) {
					return false
				}
			}

			if query == "" && len(first.Records) != len(prices) {
				return false
			}
			return c.Len() == len(prices)
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
		gen.OneConstOf("", "ТОВАР", "товар 1", "нет такого"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
