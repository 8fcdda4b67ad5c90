package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"premiumflow/config"
	"premiumflow/internal/premium/feed"
	"premiumflow/internal/premium/filter"
	"premiumflow/internal/premium/httpapi"
	"premiumflow/internal/premium/memorystore"
	"premiumflow/internal/premium/mock"
	"premiumflow/internal/premium/retention"
	"premiumflow/internal/premium/stream"
	"premiumflow/pkg/alpaca"
	"premiumflow/pkg/storage"
	kafkasink "premiumflow/pkg/storage/kafka"
	"premiumflow/pkg/storage/postgres"
	redissink "premiumflow/pkg/storage/redis"
	"premiumflow/pkg/storage/sqlite"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// archiveStore is implemented by every archive driver.
type archiveStore interface {
	storage.Archive
	storage.Pruner
	storage.HealthChecker
	Close() error
}

type closer struct {
	name string
	fn   func() error
}

// App wires the premium feed pipeline: source, filter, ring buffer, sinks
// and the HTTP surface.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	threshold  *filter.Threshold
	store      *memorystore.TradeStore
	dispatcher *stream.Dispatcher
	manager    *feed.Manager
	archive    archiveStore
	server     *httpapi.Server

	closers []closer
}

// New builds every component from cfg. Connections to optional backends are
// opened here so misconfiguration fails at startup.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Feed.Timezone, err)
	}
	env := cfg.Log.Environment

	a := &App{cfg: cfg, logger: logger}
	health := make(map[string]storage.HealthChecker)
	var recent storage.Archive

	a.dispatcher = stream.NewDispatcher(logger.Named("sinks"), cfg.Feed.SinkQueueSize)

	if err := a.openArchive(ctx, env, loc); err != nil {
		a.Close()
		return nil, err
	}
	if a.archive != nil {
		a.dispatcher.AddSink("archive", a.archive)
		health["archive"] = a.archive
		recent = a.archive
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		pub := redissink.NewPublisher(rdb, cfg.Redis.Channel, cfg.Redis.RecentKey, cfg.Redis.RecentLimit)
		a.dispatcher.AddSink("redis", pub)
		health["redis"] = pub
		if recent == nil {
			// the capped recent list backs the archive endpoint
			recent = pub
		}
		a.closers = append(a.closers, closer{"redis", pub.Close})
		logger.Info("redis sink enabled", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	if cfg.Kafka.Enabled {
		producer := kafkasink.NewProducer(kafkasink.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		a.dispatcher.AddSink("kafka", producer)
		a.closers = append(a.closers, closer{"kafka", producer.Close})
		logger.Info("kafka sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	a.threshold = filter.NewThreshold(cfg.Feed.DefaultThreshold, cfg.Feed.MinThreshold)
	a.store = memorystore.NewTradeStore(cfg.Feed.Capacity)
	handler := stream.NewHandler(logger.Named("stream"), a.threshold, a.store, a.dispatcher, loc)

	key, secret := cfg.Alpaca.Credentials(env)
	a.manager = feed.NewManager(logger.Named("feed"), a.store, a.threshold,
		a.sourceFactory(key, secret), stream.MakeMessageHandler(logger.Named("stream"), handler))

	opts := httpapi.Options{
		Manager:          a.manager,
		Store:            a.store,
		DefaultThreshold: cfg.Feed.DefaultThreshold,
		MinThreshold:     cfg.Feed.MinThreshold,
		Health:           health,
	}
	if key != "" && secret != "" {
		opts.Historical = alpaca.NewHistoricalClient(key, secret, cfg.Alpaca.DataURL)
	} else {
		logger.Warn("alpaca credentials missing, historical endpoint disabled")
	}
	if recent != nil {
		opts.Archive = recent
	}
	a.server = httpapi.NewServer(opts, logger.Named("http"))

	return a, nil
}

func (a *App) openArchive(ctx context.Context, env string, loc *time.Location) error {
	switch a.cfg.Archive.Driver {
	case "memory":
		a.archive = storage.NewMemoryStore()
	case "postgres":
		client, err := postgres.InitializeAndMigrate(a.cfg.Postgres, env, a.cfg.Archive.CreateDB)
		if err != nil {
			return fmt.Errorf("open postgres archive: %w", err)
		}
		client.SetLocation(loc)
		a.archive = client
	case "sqlite":
		s, err := sqlite.Open(ctx, a.cfg.Archive.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite archive: %w", err)
		}
		s.SetLocation(loc)
		a.archive = s
	default:
		return nil
	}
	a.closers = append(a.closers, closer{"archive", a.archive.Close})
	a.logger.Info("trade archive enabled", zap.String("driver", a.cfg.Archive.Driver))
	return nil
}

// sourceFactory returns a fresh mock generator or live stream per connect.
func (a *App) sourceFactory(key, secret string) feed.SourceFactory {
	feedCfg, alpacaCfg := a.cfg.Feed, a.cfg.Alpaca
	logger := a.logger.Named("source")

	if feedCfg.Source == config.SourceMock {
		return func() (feed.Source, error) {
			return mock.NewGenerator(mock.Options{
				Tickers:     feedCfg.MockTickers,
				MinInterval: feedCfg.MockMinInterval,
				MaxInterval: feedCfg.MockMaxInterval,
				Threshold:   a.threshold.Get,
			}, logger)
		}
	}

	return func() (feed.Source, error) {
		if key == "" || secret == "" {
			return nil, fmt.Errorf("alpaca api key and secret are required for the live feed")
		}
		return feed.NewLiveSource(feed.LiveOptions{
			URL:              alpacaCfg.WSURL,
			APIKey:           key,
			APISecret:        secret,
			HandshakeTimeout: alpacaCfg.HandshakeTimeout,
			ReadWait:         alpacaCfg.ReadWait,
			Subscriptions:    alpacaCfg.Subscriptions,
		}, logger), nil
	}
}

// Handler exposes the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run serves HTTP and runs the background workers until ctx is cancelled or
// the listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.dispatcher.Run(workerCtx)
	}()

	if a.archive != nil && a.cfg.Archive.Retention > 0 {
		pruner := retention.NewMidnightPruner(a.archive, a.cfg.Archive.Retention, a.logger.Named("retention"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruner.Start(workerCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reportStatus(workerCtx)
	}()

	httpSrv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	// stop producing before the dispatcher drains
	a.manager.Stop()
	cancel()
	wg.Wait()

	a.Close()
	return runErr
}

func (a *App) reportStatus(ctx context.Context) {
	interval := a.cfg.Server.StatusInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := a.manager.Status()
			a.logger.Info("feed status",
				zap.String("state", string(st.State)),
				zap.Float64("threshold", st.Threshold),
				zap.Int("buffered", a.store.Len()),
				zap.Int64("sink_dropped", a.dispatcher.Dropped()),
				zap.Int64("sink_failed", a.dispatcher.Failed()),
			)
		}
	}
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("failed to close backend", zap.String("name", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
