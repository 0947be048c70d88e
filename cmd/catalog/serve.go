package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/metrics"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// albumService is the part of catalog.Client the proxy exposes.
type albumService interface {
	Album(ctx context.Context, id string) (*catalog.Album, error)
	Albums(ctx context.Context, ids []string) ([]*catalog.Album, error)
	AlbumTracks(ctx context.Context, id string, window pagination.Window) (*pagination.Page[catalog.Track], error)
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog proxy",
		Long: `Serve album lookups over HTTP.

Routes:
  GET /health
  GET /metrics
  GET /albums/{id}
  GET /albums?ids=a,b,c
  GET /albums/{id}/tracks?offset=0&limit=20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withStack(ctx, v, func(s settings, st *stack) error {
				return serve(ctx, s, newProxyHandler(st.client, logging.NewLogger("proxy")))
			})
		},
	}
	cmd.Flags().Int("port", 0, "listen port (default from config)")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

// serve runs the proxy until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, s settings, handler http.Handler) error {
	logger := logging.NewLogger("proxy")

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("base_url", s.BaseURL).
			Str("user_agent", s.UserAgent).
			Msg("Starting catalog proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down catalog proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type proxy struct {
	client albumService
	logger zerolog.Logger
}

// newProxyHandler exposes client over HTTP.
func newProxyHandler(client albumService, logger zerolog.Logger) http.Handler {
	p := &proxy{client: client, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /albums", p.albums)
	mux.HandleFunc("GET /albums/{id}", p.album)
	mux.HandleFunc("GET /albums/{id}/tracks", p.tracks)

	return p.logRequests(mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (p *proxy) album(w http.ResponseWriter, r *http.Request) {
	album, err := p.client.Album(r.Context(), r.PathValue("id"))
	if err != nil {
		p.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (p *proxy) albums(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")

	albums, err := p.client.Albums(r.Context(), ids)
	if err != nil {
		p.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": albums})
}

func (p *proxy) tracks(w http.ResponseWriter, r *http.Request) {
	var window pagination.Window
	for name, dst := range map[string]*int{"offset": &window.Offset, "limit": &window.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorBody(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = n
	}

	page, err := p.client.AlbumTracks(r.Context(), r.PathValue("id"), window)
	if err != nil {
		p.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// writeError maps a catalog error back to an HTTP status.
func (p *proxy) writeError(w http.ResponseWriter, err error) {
	var ce *catalog.Error
	if !errors.As(err, &ce) {
		ce = &catalog.Error{Kind: catalog.KindRequestFailed, Message: err.Error()}
	}

	status := http.StatusBadGateway
	switch ce.Kind {
	case catalog.KindBadRequest:
		status = http.StatusBadRequest
	case catalog.KindNotFound:
		status = http.StatusNotFound
	default:
		p.logger.Warn().Err(err).Int("status", ce.Status).Msg("Upstream request failed")
	}
	writeErrorBody(w, status, ce.Message)
}

func writeErrorBody(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"status": status, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (p *proxy) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		p.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
