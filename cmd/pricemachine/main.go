package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-machine/internal/cli"
	"price-machine/internal/config"
	"price-machine/internal/loader"
	"price-machine/internal/logger"
	"price-machine/internal/server"
	"price-machine/internal/service"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func gracefulShutdown(ctx context.Context, apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully")

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func serve(cfg *config.Config, log *zap.Logger, svc service.PriceService) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, log, svc)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)
	go gracefulShutdown(ctx, srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting price machine",
		zap.String("env", cfg.Server.Env),
		zap.String("dir", cfg.Prices.Dir),
		zap.Bool("serve", cfg.Server.Serve),
	)

	svc, summary, err := loadCatalog(cfg, log)
	if err != nil {
		log.Fatal("Failed to load price lists", zap.Error(err))
	}
	fmt.Fprintf(os.Stdout, "Обработано файлов: %d, позиций: %d, отклонено строк: %d\n",
		len(summary.Files), summary.Accepted, summary.Rejected)

	if cfg.Server.Serve {
		serve(cfg, log, svc)
		return
	}

	// Keep the prompt readable: only warnings from here on
	quiet := logger.WithLevel(log, zapcore.WarnLevel)
	if err := runPrompt(svc, os.Stdin, os.Stdout, cfg.Prices.ReportFile, quiet); err != nil {
		log.Fatal("Session failed", zap.Error(err))
	}
}

// loadCatalog reads every price list under the configured directory. An
// interrupt cancels the load; the handler is released once loading ends.
func loadCatalog(cfg *config.Config, log *zap.Logger) (service.PriceService, loader.Summary, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewPriceService(loader.New(cfg.Prices.Pattern, log), log)
	summary, err := svc.LoadDir(ctx, cfg.Prices.Dir)
	return svc, summary, err
}

// runPrompt drives the interactive session. No signal handler is installed
// here, so Ctrl-C at the prompt terminates the process.
func runPrompt(svc service.PriceService, in io.Reader, out io.Writer, reportFile string, log *zap.Logger) error {
	return cli.NewSession(svc, in, out, reportFile, log).Run(context.Background())
}
