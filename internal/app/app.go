package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/toomanytabs/internal/cache"
	"github.com/MrSnakeDoc/toomanytabs/internal/config"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/redis"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
	"github.com/MrSnakeDoc/toomanytabs/internal/sources/homepage"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
	redisstore "github.com/MrSnakeDoc/toomanytabs/internal/store/redis"
	"github.com/MrSnakeDoc/toomanytabs/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sync        *remotesync.Orchestrator

	// imports run once, on the first Connected status
	importOnce sync.Once
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	client, err := remote.NewClient(remote.Credentials{
		Token:      cfg.RemoteToken,
		Repository: cfg.RemoteRepository,
		Branch:     cfg.RemoteBranch,
	}, remote.Options{
		BaseURL:    cfg.RemoteBaseURL,
		PathPrefix: cfg.RemotePathPrefix,
		Logger:     loggerClient.Named("remote"),
		MaxRetries: cfg.RemoteMaxRetries,
	})
	if err != nil {
		loggerClient.Errorf("Invalid remote configuration: %v", err)
		os.Exit(1)
	}

	localCache, redisClient, err := newCache(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize %s cache: %v", cfg.CacheBackend, err)
		os.Exit(1)
	}
	loggerClient.Info("local cache initialized",
		logger.String("backend", cfg.CacheBackend))

	orchestrator := remotesync.New(remotesync.Config{
		RequestTimeout: cfg.RequestTimeout,
		SyncInterval:   cfg.SyncInterval,
		Logger:         loggerClient.Named("sync"),
	}, state.New(), client, localCache)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		Sync:            orchestrator,
		CacheBackend:    cfg.CacheBackend,
		RedisClient:     redisClient,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg.ListenPort, d),
		redisClient: redisClient,
		sync:        orchestrator,
	}
}

// newCache builds the configured cache backend. The redis client is
// returned so the status endpoint can ping it.
func newCache(cfg *config.Config, log logger.Logger) (cache.Cache, *goredis.Client, error) {
	switch cfg.CacheBackend {
	case cache.BackendMemory:
		log.Warn("memory cache configured, collections will not survive a restart without the remote store")
		return cache.NewMemory(), nil, nil
	case cache.BackendRedis:
		// fail fast if unavailable
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisConnectTimeout+cfg.RedisPingTimeout)
		defer cancel()
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log.Named("redis"))
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client, cfg.RedisKeyPrefix), client, nil
	default:
		return cache.NewFile(cfg.CacheDir), nil, nil
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting TooManyTabs v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("TooManyTabs %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load from the remote store, or the cache when it is unreachable
	updates, err := a.sync.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize sync: %w", err)
	}

	st := a.sync.Status()
	a.logger.Info("collections loaded",
		logger.String("state", st.State.String()),
		logger.Duration("sync_interval", a.cfg.SyncInterval))

	// Importing on top of the cache would count as an offline edit and
	// overwrite the remote documents once they are reachable.
	if st.State == remotesync.Connected {
		a.importOnce.Do(a.importHomepages)
	} else {
		a.logger.Info("homepage import deferred until the remote store is reachable")
	}
	go a.watchStatus(updates)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}

	// waits for an in-flight push
	if err := a.sync.Close(); err != nil {
		a.logger.Warnf("failed to close sync: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ TooManyTabs stopped cleanly")
	return nil
}

func (a *App) importHomepages() {
	a.importHomepage(homepage.KindBookmarks, a.cfg.HomepageBookmarksFile)
	a.importHomepage(homepage.KindServices, a.cfg.HomepageServicesFile)
}

// importHomepage adds the bookmarks of a Homepage file, skipping URLs
// already present. Failures are logged and never stop startup.
func (a *App) importHomepage(kind homepage.Kind, path string) {
	if path == "" {
		return
	}
	items, err := homepage.LoadFile(kind, path)
	if err != nil {
		a.logger.Warn("homepage import skipped",
			logger.String("kind", string(kind)),
			logger.String("file", path),
			logger.Error(err))
		return
	}

	var res homepage.ImportResult
	_, err = a.sync.Mutate(func(s *state.Store) error {
		var err error
		res, err = homepage.Import(s, items, "")
		return err
	})
	if err != nil {
		a.logger.Warn("homepage import failed",
			logger.String("kind", string(kind)),
			logger.Error(err))
		return
	}
	a.logger.Info("homepage import completed",
		logger.String("kind", string(kind)),
		logger.String("file", path),
		logger.Int("added", res.Added),
		logger.Int("skipped", res.Skipped))
}

// watchStatus logs sync failures until the orchestrator closes the channel
// and runs the deferred imports on the first Connected status.
func (a *App) watchStatus(updates <-chan remotesync.Status) {
	var last remotesync.State
	for st := range updates {
		if st.State == remotesync.Error && last != remotesync.Error {
			a.logger.Warn("remote sync degraded, serving from local cache",
				logger.String("error", st.LastError),
				logger.Bool("auth_failed", st.AuthFailed))
		}
		if st.State == remotesync.Connected {
			if last == remotesync.Error {
				a.logger.Info("remote sync recovered")
			}
			a.importOnce.Do(a.importHomepages)
		}
		last = st.State
	}
}
