package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/config"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/db"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/handler"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/middleware"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/repository"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/router"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/service"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/streets"
)

type voteStore interface {
	service.VoteStore
	handler.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	middleware.InitLogger(cfg.LogLevel, "nb-plowed")
	log := middleware.Logger

	if cfg.IPSaltIsDefault {
		log.Warn().Msg("IP_SALT not set, using the built-in default salt; set IP_SALT before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store voteStore
		pool  *pgxpool.Pool
	)
	if cfg.UsesMemoryStore() {
		log.Warn().Msg("using in-memory vote store, votes are lost on restart")
		store = repository.NewMemoryVoteRepo()
	} else {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		store = repository.NewVoteRepo(pool)
	}

	rdb := connectRedis(ctx, cfg.RedisURL)
	if rdb != nil {
		defer rdb.Close()
	}

	catalog, err := streets.LoadFile(cfg.StreetsGeoJSON)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.StreetsGeoJSON).Msg("street catalog not loaded")
	} else {
		log.Info().Int("streets", catalog.Len()).Msg("street catalog loaded")
	}

	var known service.StreetLookup
	if cfg.RequireKnownStreet {
		if catalog == nil {
			log.Fatal().Msg("REQUIRE_KNOWN_STREET is set but no street catalog could be loaded")
		}
		known = catalog
	}

	clock := clockwork.NewRealClock()
	voteSvc := service.NewVoteService(store, service.VoteConfig{
		Salt:           cfg.IPSalt,
		HashIterations: cfg.IPHashIterations,
		Cooldown:       cfg.VoteCooldown,
		DailyCap:       cfg.DailyVoteCap,
		Window:         cfg.StatusWindow,
	}, clock, known)
	statusSvc := service.NewStatusService(store, cfg.StatusWindow, clock)

	handler.InitMetrics(pool)

	app := fiber.New(fiber.Config{
		AppName:      "nb-plowed",
		ServerHeader: "nb-plowed",
		BodyLimit:    16 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	router.Setup(app, &router.Handlers{
		Vote:   handler.NewVoteHandler(voteSvc, cfg.TrustedProxyHeaders),
		Status: handler.NewStatusHandler(statusSvc, catalog),
		Health: handler.NewHealthHandler(store, rdb, catalog.Len()),
	}, router.Options{
		CORSOrigins:  cfg.CORSOrigins,
		ProxyHeaders: cfg.TrustedProxyHeaders,
		PublicDir:    cfg.PublicDir,
		Limiter:      middleware.NewAPIRequestLimiter(rdb, cfg.APIRateLimit, cfg.TrustedProxyHeaders),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Dur("vote_cooldown", cfg.VoteCooldown).
			Int("daily_vote_cap", cfg.DailyVoteCap).
			Msg("nb-plowed starting")
		errCh <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// connectRedis returns a client for the request throttle, or nil when Redis is
// not configured or unreachable.
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	log := middleware.Logger
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, request throttle disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, request throttle disabled")
		return nil
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, request throttle disabled")
		_ = rdb.Close()
		return nil
	}

	log.Info().Msg("redis: connected, request throttle enabled")
	return rdb
}
