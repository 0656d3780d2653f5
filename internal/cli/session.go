package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"price-machine/internal/report"
	"price-machine/internal/service"

	"go.uber.org/zap"
)

const exitCommand = "exit"

// Session is the interactive search prompt
type Session struct {
	svc        service.PriceService
	in         *bufio.Scanner
	out        io.Writer
	reportFile string
	logger     *zap.Logger
}

// NewSession creates a Session reading queries from in and printing to out
func NewSession(svc service.PriceService, in io.Reader, out io.Writer, reportFile string, logger *zap.Logger) *Session {
	return &Session{
		svc:        svc,
		in:         bufio.NewScanner(in),
		out:        out,
		reportFile: reportFile,
		logger:     logger,
	}
}

// Run prompts for queries until "exit" or end of input, printing a ranked
// table for each, then offers to export the last result as HTML
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		query, ok := s.prompt("\nВведите строку для поиска (Для выхода наберите \"exit\"): ")
		if !ok || strings.EqualFold(query, exitCommand) {
			break
		}

		result := s.svc.Search(query)
		if err := report.PrintTable(s.out, result.Records); err != nil {
			return fmt.Errorf("failed to print result: %w", err)
		}
		if result.ZeroWeight > 0 {
			fmt.Fprintf(s.out, "Пропущено позиций с нулевым весом: %d\n", result.ZeroWeight)
		}
	}

	answer, ok := s.prompt("Вывести данные последнего запроса в HTML-файл (Y/N)? ")
	if !ok || strings.EqualFold(strings.TrimSpace(answer), "n") {
		return nil
	}

	if err := s.svc.Export(s.reportFile); err != nil {
		fmt.Fprintf(s.out, "Результат выгрузки HTML-файла: %v\n", err)
		return nil
	}
	fmt.Fprintf(s.out, "Результат выгрузки HTML-файла: %s\n", s.reportFile)
	return nil
}

func (s *Session) prompt(text string) (string, bool) {
	fmt.Fprint(s.out, text)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			s.logger.Warn("Failed to read input", zap.Error(err))
		}
		return "", false
	}
	return s.in.Text(), true
}
