// Command entity-server runs a standalone copy of the bundled entity
// simulator, serving the customer and product fixtures over HTTP. It stands
// in for the real customer and product services during local development.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/lubart/discount-service/internal/entity"
)

func main() {
	var addr string

	flag.StringVar(&addr, "addr", "0.0.0.0:8081", "listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, addr); err != nil {
		slog.Error("entity server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	entity.NewHandler().Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		Addr:              addr,
		Handler:           mux,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("entity server listening", slog.String("addr", addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
