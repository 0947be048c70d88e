package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/credential"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/Sternrassler/catalog-client/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// MaxIDsPerRequest is the largest batch the service accepts in one request.
const MaxIDsPerRequest = 20

// refreshTimeout bounds a shared credential refresh. The refresh outlives
// the caller that started it, so no single caller's deadline applies.
const refreshTimeout = 30 * time.Second

// Operation names used as metric labels.
const (
	opAlbum          = "album"
	opAlbums         = "albums"
	opAlbumTracks    = "album_tracks"
	opAllAlbumTracks = "all_album_tracks"
)

// Prometheus metrics for catalog client operations.
var (
	batchChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_batch_chunks_total",
		Help: "Total batch chunks dispatched by multi-id lookups",
	})

	operationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_operation_errors_total",
		Help: "Total failed client operations by operation and error kind",
	}, []string{"operation", "kind"})

	credentialRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_credential_refreshes_total",
		Help: "Total credential refreshes triggered by the client by result",
	}, []string{"result"})
)

// Transport sends a single request to the catalog service. Any HTTP status
// is a Response; an error means no response was received.
type Transport interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Config holds the client configuration.
type Config struct {
	// MaxConcurrency bounds parallel chunk dispatch in Albums (1 = sequential)
	MaxConcurrency int

	// Collector configures AllAlbumTracks
	Collector pagination.Config

	// Now is the clock used for credential expiry checks (default time.Now)
	Now func() time.Time
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Collector:      pagination.DefaultConfig(),
	}
}

// Client is the catalog resource client.
type Client struct {
	transport Transport
	creds     credential.Provider
	config    Config
	refresh   singleflight.Group
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates a new catalog client.
func New(t Transport, creds credential.Provider, cfg Config) (*Client, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential provider is required")
	}
	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		transport: t,
		creds:     creds,
		config:    cfg,
		now:       now,
		logger:    log.With().Str("component", "catalog-client").Logger(),
	}, nil
}

// Album returns the album with the given id, including the first page of
// its tracks.
func (c *Client) Album(ctx context.Context, id string) (*Album, error) {
	if !ValidID(id) {
		return nil, c.fail(opAlbum, invalidIDs(1))
	}

	body, err := c.send(ctx, &transport.Request{
		Path:     "/albums/" + url.PathEscape(id),
		Endpoint: "/albums/{id}",
	})
	if err != nil {
		return nil, c.fail(opAlbum, err)
	}

	var album Album
	if err := json.Unmarshal(body, &album); err != nil {
		return nil, c.fail(opAlbum, requestFailed("decode album: "+err.Error(), err))
	}
	return &album, nil
}

// Albums returns the albums for ids in input order. Duplicates are kept.
// Ids unknown to the service yield nil at their position.
//
// The ids are sent in chunks of MaxIDsPerRequest. The first failing chunk
// fails the whole call; chunks not yet dispatched are never sent.
func (c *Client) Albums(ctx context.Context, ids []string) ([]*Album, error) {
	if len(ids) == 0 {
		return []*Album{}, nil
	}
	if n := countInvalid(ids); n > 0 {
		c.logger.Warn().
			Int("ids", len(ids)).
			Int("invalid", n).
			Msg("Rejected batch with malformed ids")
		return nil, c.fail(opAlbums, invalidIDs(n))
	}

	chunks := pagination.Chunk(ids, MaxIDsPerRequest)
	results := make([][]*Album, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)

	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			albums, err := c.albumChunk(gctx, chunk)
			if err != nil {
				c.logger.Debug().
					Err(err).
					Int("chunk", i).
					Int("chunks", len(chunks)).
					Msg("Batch chunk failed")
				return err
			}
			results[i] = albums
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, c.fail(opAlbums, err)
	}

	albums := make([]*Album, 0, len(ids))
	for _, r := range results {
		albums = append(albums, r...)
	}
	return albums, nil
}

func (c *Client) albumChunk(ctx context.Context, chunk []string) ([]*Album, error) {
	batchChunksTotal.Inc()

	body, err := c.send(ctx, &transport.Request{
		Path:     "/albums",
		Endpoint: "/albums",
		Query:    url.Values{"ids": []string{strings.Join(chunk, ",")}},
	})
	if err != nil {
		return nil, err
	}

	var batch batchAlbums
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, requestFailed("decode albums: "+err.Error(), err)
	}
	if len(batch.Albums) != len(chunk) {
		return nil, requestFailed(fmt.Sprintf("batch returned %d albums for %d ids", len(batch.Albums), len(chunk)), nil)
	}
	return batch.Albums, nil
}

// AlbumTracks returns one window of the album's tracks. A zero Limit selects
// pagination.DefaultLimit. The page is returned exactly as the service
// reported it.
func (c *Client) AlbumTracks(ctx context.Context, id string, window pagination.Window) (*pagination.Page[Track], error) {
	w, err := window.Normalize()
	if err != nil {
		return nil, c.fail(opAlbumTracks, badRequest(err.Error()))
	}
	if !ValidID(id) {
		return nil, c.fail(opAlbumTracks, invalidIDs(1))
	}

	page, err := c.albumTracks(ctx, id, w)
	if err != nil {
		return nil, c.fail(opAlbumTracks, err)
	}
	return page, nil
}

func (c *Client) albumTracks(ctx context.Context, id string, w pagination.Window) (*pagination.Page[Track], error) {
	c.logger.Debug().
		Str("id", id).
		Int("offset", w.Offset).
		Int("limit", w.Limit).
		Msg("Fetching album tracks")

	body, err := c.send(ctx, &transport.Request{
		Path:     "/albums/" + url.PathEscape(id) + "/tracks",
		Endpoint: "/albums/{id}/tracks",
		Query:    w.Query(),
	})
	if err != nil {
		return nil, err
	}

	var page pagination.Page[Track]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, requestFailed("decode tracks: "+err.Error(), err)
	}
	return &page, nil
}

// AllAlbumTracks returns every track of the album, fetching windows in
// parallel. Any failed window fails the call.
func (c *Client) AllAlbumTracks(ctx context.Context, id string) ([]Track, error) {
	if !ValidID(id) {
		return nil, c.fail(opAllAlbumTracks, invalidIDs(1))
	}

	collector := pagination.NewCollector(func(ctx context.Context, w pagination.Window) (*pagination.Page[Track], error) {
		return c.albumTracks(ctx, id, w)
	}, c.config.Collector)

	tracks, err := collector.CollectAll(ctx)
	if err != nil {
		return nil, c.fail(opAllAlbumTracks, err)
	}
	return tracks, nil
}

// send dispatches req with a fresh token and maps the outcome. The body is
// returned for 2xx responses only.
func (c *Client) send(ctx context.Context, req *transport.Request) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	req.Token = token

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("endpoint", req.Endpoint).
			Msg("Catalog request failed")
		return nil, requestFailed(err.Error(), err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}

	e := statusError(resp.StatusCode, resp.Body)
	c.logger.Debug().
		Str("endpoint", req.Endpoint).
		Int("status", resp.StatusCode).
		Str("kind", string(e.Kind)).
		Msg("Catalog request rejected")
	return nil, e
}

// token returns a live access token, refreshing the credential when it has
// expired. Concurrent callers share one in-flight refresh.
func (c *Client) token(ctx context.Context) (string, error) {
	state := c.creds.Current()
	if !state.Expired(c.now()) {
		return state.Token, nil
	}

	ch := c.refresh.DoChan("credentials", func() (any, error) {
		// A refresh may have completed between the check above and now.
		if s := c.creds.Current(); !s.Expired(c.now()) {
			return s, nil
		}

		c.logger.Debug().
			Time("expires_at", state.ExpiresAt).
			Msg("Credential expired, refreshing")

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		s, err := c.creds.Refresh(rctx)
		if err != nil {
			credentialRefreshesTotal.WithLabelValues("failure").Inc()
			return nil, err
		}
		if s.Expired(c.now()) {
			credentialRefreshesTotal.WithLabelValues("failure").Inc()
			return nil, errors.New("provider returned an expired credential")
		}

		credentialRefreshesTotal.WithLabelValues("success").Inc()
		c.logger.Info().
			Time("expires_at", s.ExpiresAt).
			Msg("Credential refreshed")
		return s, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		err := ctx.Err()
		return "", requestFailed("refresh credentials: "+err.Error(), err)
	}
	if res.Err != nil {
		c.logger.Error().Err(res.Err).Msg("Credential refresh failed")
		return "", requestFailed("refresh credentials: "+res.Err.Error(), res.Err)
	}

	return res.Val.(credential.State).Token, nil
}

// fail normalizes err to an *Error and records it.
func (c *Client) fail(op string, err error) error {
	e := asError(err)
	operationErrorsTotal.WithLabelValues(op, string(e.Kind)).Inc()
	if e.Kind == KindRequestFailed && e.Status >= http.StatusInternalServerError {
		c.logger.Warn().
			Str("operation", op).
			Int("status", e.Status).
			Msg("Catalog operation failed")
	}
	return e
}
