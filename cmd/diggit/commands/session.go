package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/directional-star/diggit/pkg/cache"
	"github.com/directional-star/diggit/pkg/config"
	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/observability"
	"github.com/directional-star/diggit/pkg/version"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsPath              = "/metrics"
	localGHPathPrefix        = "local/"
)

// session is everything a command needs once flags are parsed: configuration,
// telemetry, the cache store and the opened repository.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	store     cache.Store
	repo      *gitlib.Repository
	ghPath    string
	metrics   *http.Server
}

func openSession(cmd *cobra.Command, opts *globalOptions, mode observability.AppMode) (*session, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}

	providers, err := observability.InitWithWriter(cfg.Telemetry(mode, version.Version), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	s := &session{cfg: cfg, providers: providers, ghPath: opts.ghPath}

	if providers.MetricsHandler != nil {
		s.metrics = serveMetrics(cfg.Observability.MetricsAddr, providers.MetricsHandler, providers.Logger)
	}

	s.store, err = cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, errors.Join(err, s.Close(cmd.Context()))
	}

	s.repo, err = gitlib.OpenRepository(opts.repoPath)
	if err != nil {
		return nil, errors.Join(err, s.Close(cmd.Context()))
	}

	if s.ghPath == "" {
		s.ghPath = defaultGHPath(s.repo)
	}

	return s, nil
}

// Close releases the repository and store, stops the metrics endpoint and
// flushes telemetry.
func (s *session) Close(ctx context.Context) error {
	var errs []error

	if s.repo != nil {
		s.repo.Free()
	}

	if s.store != nil {
		errs = append(errs, s.store.Close())
	}

	if s.metrics != nil {
		errs = append(errs, s.metrics.Shutdown(ctx))
	}

	if s.providers.Shutdown != nil {
		errs = append(errs, s.providers.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

func (s *session) logger() *slog.Logger {
	return observability.OrDefault(s.providers.Logger)
}

// resolve turns a revspec into a commit hash.
func (s *session) resolve(ctx context.Context, rev string) (gitlib.Hash, error) {
	commit, err := s.repo.ResolveCommit(ctx, rev)
	if err != nil {
		return gitlib.Hash{}, err
	}
	defer commit.Free()

	return commit.Hash(), nil
}

func defaultGHPath(repo *gitlib.Repository) string {
	return localGHPathPrefix + filepath.Base(filepath.Clean(repo.Workdir()))
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", addr, "path", metricsPath)

	return server
}

// withSession opens a session, runs fn and closes the session, joining any
// close error into the result.
func withSession(
	cmd *cobra.Command, opts *globalOptions, mode observability.AppMode,
	fn func(ctx context.Context, s *session) error,
) (err error) {
	s, err := openSession(cmd, opts, mode)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, s.Close(context.WithoutCancel(cmd.Context())))
	}()

	return fn(cmd.Context(), s)
}
