package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"price-machine/internal/domain"
)

const ruleWidth = 103

// PrintTable writes rows as a fixed-width console table
func PrintTable(w io.Writer, rows []domain.PricedRecord) error {
	rule := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s|\n",
		center("№", 4), center("Название", 40), center("Цена", 10),
		center("Вес", 5), center("Файл", 15), center("Цена за кг.", 10))
	b.WriteString(rule + "\n")

	for i, r := range rows {
		fmt.Fprintf(&b, "| %4d | %-40s | %10s | %5s | %-15s | %10s |\n",
			i+1, r.Name, r.Price.StringFixed(2), strconv.Itoa(r.Weight), r.SourceFile, r.UnitPrice.StringFixed(2))
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// center pads s on both sides to width runes, extra space going right
func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
