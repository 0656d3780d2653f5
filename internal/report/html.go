package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"price-machine/internal/domain"
)

// DefaultFile is where ExportHTML writes when no path is configured
const DefaultFile = "output.html"

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Позиции продуктов</title>
</head>
<body>
    <table border="1">
        <thead>
        <tr>
            <th>Номер</th>
            <th>Название</th>
            <th>Цена</th>
            <th>Фасовка</th>
            <th>Файл</th>
            <th>Цена за кг.</th>
        </tr>
        </thead>
        <tbody>
{{- range $i, $r := . }}
        <tr><td>{{ inc $i }}</td><td>{{ $r.Name }}</td><td>{{ $r.Price.StringFixed 2 }}</td><td>{{ $r.Weight }}</td><td>{{ $r.SourceFile }}</td><td>{{ $r.UnitPrice.StringFixed 2 }}</td></tr>
{{- end }}
        </tbody>
    </table>
</body>
</html>
`))

// WriteHTML renders rows as an HTML table
func WriteHTML(w io.Writer, rows []domain.PricedRecord) error {
	if err := page.Execute(w, rows); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// ExportHTML renders rows into the file at path, replacing it only once
// rendering succeeded
func ExportHTML(path string, rows []domain.PricedRecord) error {
	if path == "" {
		path = DefaultFile
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, rows); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.html")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}
