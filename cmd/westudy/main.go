package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/adapter/gotrue"
	"github.com/srgjo27/westudy/internal/adapter/notify"
	"github.com/srgjo27/westudy/internal/adapter/repository/postgres"
	"github.com/srgjo27/westudy/internal/adapter/repository/redisstore"
	"github.com/srgjo27/westudy/internal/adapter/rest"
	"github.com/srgjo27/westudy/internal/core/ports"
	"github.com/srgjo27/westudy/internal/core/services"
	"github.com/srgjo27/westudy/internal/platform/cache"
	"github.com/srgjo27/westudy/internal/platform/config"
	"github.com/srgjo27/westudy/internal/platform/database"
	"github.com/srgjo27/westudy/internal/platform/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run owns every deferred cleanup so main can exit with its code afterwards.
func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	envLoaded := config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if !envLoaded {
		log.Debug(".env not found, using process environment only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", zap.Error(err))
		return 1
	}
	defer cleanup()

	if err := a.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		return 1
	}

	return 0
}

type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	api        *rest.Client
	categories ports.CategoryAPI
	cache      *redisstore.CategoryCache
	session    *services.SessionController
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, func(), error) {
	redisClient, err := cache.NewRedisClient(ctx, cache.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	closers := []func(){func() { redisClient.Close() }}

	var store ports.SessionStore
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		db, err := database.NewPostgresDB(database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		}, log)
		if err != nil {
			redisClient.Close()
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })

		pgStore := postgres.NewSessionStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			db.Close()
			redisClient.Close()
			return nil, nil, err
		}
		store = pgStore
	default:
		store = redisstore.NewSessionStore(redisClient, redisstore.DefaultKeyPrefix)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	provider := gotrue.NewProvider(gotrue.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
	}, httpClient, store, log.Named("auth"))

	api := rest.NewClient(cfg.APIURL, httpClient, provider, log.Named("api"))
	categoryCache := redisstore.NewCategoryCache(redisClient, api, cfg.CategoryCacheTTL, log.Named("cache"))

	notifier := notify.NewConsole(os.Stdout, log)
	session := services.NewSessionController(ctx, provider, api, notifier, log.Named("session"))
	closers = append(closers, session.Close)

	a := &app{
		cfg:        cfg,
		logger:     log,
		api:        api,
		categories: categoryCache,
		cache:      categoryCache,
		session:    session,
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return a, cleanup, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: westudy <command> [flags]

commands:
  listings    [-q term] [-category c] [-university u] [-guests n] [-min p] [-max p] [-pages n]
  listing     <id>
  categories  [-refresh]
  login       -email e -password p
  register    -name n -email e -password p
  logout
  me          [-name n] [-avatar url]
  refresh
  bookings
  book        -listing id -in yyyy-mm-dd -out yyyy-mm-dd -price p [-guests n]
  unlock      <booking-id>
  watch       [-interval d] [-margin d]
`)
}
