package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/styleguess-backend/internal/catalog"
	"github.com/DoyleJ11/styleguess-backend/internal/config"
	"github.com/DoyleJ11/styleguess-backend/internal/httpapi"
	"github.com/DoyleJ11/styleguess-backend/internal/hub"
	"github.com/DoyleJ11/styleguess-backend/internal/logging"
	"github.com/DoyleJ11/styleguess-backend/internal/session"
	"github.com/DoyleJ11/styleguess-backend/internal/signals"
)

func main() {
	// .env is optional; real env vars still win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}
	if err := config.NewCommand(cfg, serve).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "styleguess:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.DevLogging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	source, err := catalog.Open(ctx, cfg.Catalog, logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	sinks := signals.Fanout{signals.NewLogSink(logger)}
	if cfg.NATSURL != "" {
		ns, err := signals.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer ns.Close()
		sinks = append(sinks, ns)
	}

	seeds := newSeeder(cfg.Seed)
	clock := clockwork.NewRealClock()
	rules := cfg.Rules()

	h := hub.NewHub(ctx, func(ctx context.Context, code string) *session.Session {
		return session.NewSession(ctx, session.Options{
			Code:         code,
			Source:       source,
			Rules:        rules,
			TickInterval: cfg.TickInterval,
			Clock:        clock,
			Rand:         seeds.next(),
			Sink:         sinks,
			Logger:       logger,
		})
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(h, httpapi.Options{AllowedOrigins: cfg.CORSOrigins, Logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("catalog", cfg.Catalog),
			zap.Int("budget", rules.BudgetSec),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// seeder hands every session its own generator. A fixed seed makes the whole
// sequence of sessions reproducible.
type seeder struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newSeeder(seed uint64) *seeder {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &seeder{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeder) next() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.src.Uint64(), s.src.Uint64()))
}
