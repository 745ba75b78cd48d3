package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gofhir/disorder"
	"github.com/gofhir/disorder/pkg/logger"
	"github.com/gofhir/disorder/telemetry"
	"github.com/gofhir/disorder/vocabulary"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local vocabulary, a resolve API and metrics",
		Long: `serve exposes:

  GET /disorders/{code}  terms of the --codesystem files, as {"id", "name"}
  GET /resolve/{id}      the resolved Ref for id
  GET /metrics           Prometheus metrics

Without --codesystem, /resolve uses the configured endpoint and
/disorders is not served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "listen address")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, g *globalOptions, o *serveOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	log := g.newLogger(cfg, cmd.ErrOrStderr())
	vocab, err := g.loadVocabulary(log)
	if err != nil {
		return err
	}
	svc, err := g.newService(cfg, vocab, log)
	if err != nil {
		return err
	}

	handler, err := newServeHandler(svc, vocab, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", o.addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("listening on %s", ln.Addr())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// newServeHandler assembles the routes of the serve command.
func newServeHandler(svc *disorder.Service, vocab *vocabulary.Service, log *logger.Logger) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := telemetry.NewExporter("", svc).Register(reg); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if vocab != nil {
		mux.Handle(vocabulary.DetailsPath, vocab.Handler(log))
	}
	mux.Handle("GET /metrics", telemetry.Handler(reg))
	mux.HandleFunc("GET /resolve/{id}", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ref := svc.NewRef(r.PathValue("id"), "", nil)
		<-ref.Resolve(r.Context(), nil)

		out := ResolveOutput{
			ID:       ref.ID(),
			Name:     ref.Name(),
			State:    ref.State().String(),
			Duration: time.Since(start).Round(time.Microsecond).String(),
		}
		if err := ref.Err(); err != nil {
			out.Error = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux, nil
}
