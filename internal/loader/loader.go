package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"price-machine/internal/catalog"
	"price-machine/internal/domain"
	"price-machine/internal/normalizer"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultPattern is the substring a file name must contain to be loaded
const DefaultPattern = "price"

// Sink receives the rows of each discovered price list
type Sink interface {
	AddFile(fileName string, headers []string, rows []map[string]string) catalog.IngestReport
}

// Summary describes one directory load
type Summary struct {
	BatchID     uuid.UUID
	Files       []string
	FailedFiles []string
	Accepted    int
	Rejected    int
}

// Loader discovers price lists on disk and feeds them into a Sink
type Loader struct {
	pattern string
	logger  *zap.Logger
}

// New creates a Loader matching file names that contain pattern
func New(pattern string, logger *zap.Logger) *Loader {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Loader{pattern: pattern, logger: logger}
}

// WalkFailure is a path under the load root that could not be visited
type WalkFailure struct {
	Path string
	Err  error
}

// Discover walks root recursively and returns the paths of files whose base
// name contains pattern, in lexical order. Symbolic links to files are listed;
// links to directories are not descended into. A subdirectory or entry that
// cannot be read is reported as a WalkFailure and skipped. Only a failure on
// root itself is returned as an error.
func Discover(root, pattern string) ([]string, []WalkFailure, error) {
	return discover(os.DirFS(root), root, pattern)
}

func discover(fsys fs.FS, root, pattern string) ([]string, []WalkFailure, error) {
	var paths []string
	var failures []WalkFailure

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == "." {
				return err
			}
			failures = append(failures, WalkFailure{Path: filepath.Join(root, filepath.FromSlash(path)), Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch mode := d.Type(); {
		case mode&fs.ModeSymlink != 0:
			// dangling links stay listed so the read failure is reported
			if info, err := fs.Stat(fsys, path); err == nil && !info.Mode().IsRegular() {
				return nil
			}
		case !mode.IsRegular():
			return nil
		}
		if strings.Contains(d.Name(), pattern) {
			paths = append(paths, filepath.Join(root, filepath.FromSlash(path)))
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return paths, failures, nil
}

// ReadFile parses a UTF-8 CSV price list. The first line holds the headers;
// every following line becomes a map from header to raw value.
func ReadFile(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses CSV from r. A leading byte order mark is dropped. Short lines
// leave trailing headers unset, extra values are ignored, and when a header
// repeats the later column wins.
func Read(r io.Reader) ([]string, []map[string]string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.FieldsPerRecord = -1
	// a bare quote inside an unquoted name is kept as text
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, []map[string]string{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i >= len(record) {
				break
			}
			row[h] = record[i]
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// LoadDir discovers price lists under root and feeds each into sink.
// A file that cannot be read is logged and skipped.
func (l *Loader) LoadDir(ctx context.Context, root string, sink Sink) (Summary, error) {
	summary := Summary{BatchID: uuid.New()}
	log := l.logger.With(zap.String("batch_id", summary.BatchID.String()))

	abs, err := filepath.Abs(root)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	paths, failures, err := Discover(abs, l.pattern)
	if err != nil {
		return summary, err
	}
	for _, failure := range failures {
		log.Warn("Skipping unreadable path", zap.String("path", failure.Path), zap.Error(failure.Err))
		summary.FailedFiles = append(summary.FailedFiles, failure.Path)
	}
	log.Info("Discovered price lists",
		zap.String("dir", abs),
		zap.String("pattern", l.pattern),
		zap.Int("files", len(paths)),
	)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := filepath.Base(path)
		headers, rows, err := ReadFile(path)
		if err != nil {
			log.Warn("Skipping unreadable price list", zap.String("file", name), zap.Error(err))
			summary.FailedFiles = append(summary.FailedFiles, name)
			continue
		}

		recognized := normalizer.Recognized(headers)
		fields := make([]string, 0, len(recognized))
		for _, role := range domain.Roles {
			if h, ok := recognized[role]; ok {
				fields = append(fields, h)
			}
		}
		log.Debug("Processing price list",
			zap.String("file", name),
			zap.Strings("headers", headers),
			zap.Strings("recognized", fields),
		)

		report := sink.AddFile(name, headers, rows)
		summary.Files = append(summary.Files, name)
		summary.Accepted += report.Accepted
		summary.Rejected += report.Rejected

		for _, rowErr := range report.Errors {
			log.Debug("Row rejected", zap.Error(rowErr))
		}
		log.Info("Price list loaded",
			zap.String("file", name),
			zap.Int("accepted", report.Accepted),
			zap.Int("rejected", report.Rejected),
		)
	}

	return summary, nil
}
