package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "github.com/openlearnhub/liveclass/api/echo"
	"github.com/openlearnhub/liveclass/cache"
	rediscache "github.com/openlearnhub/liveclass/cache/redis"
	"github.com/openlearnhub/liveclass/config"
	"github.com/openlearnhub/liveclass/internal/platform"
	"github.com/openlearnhub/liveclass/internal/server"
	"github.com/openlearnhub/liveclass/mongodb"
	"github.com/openlearnhub/liveclass/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Str("cache_backend", cfg.CacheBackend).
		Msg("Starting liveclass session service")

	ctx := context.Background()
	if err := mongodb.Init(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}

	sessionRepo, err := mongodb.NewSessionRepositoryMongo(ctx, mongodb.DB())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session repository")
	}

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	var sessionCache cache.SessionCache
	var memCache *cache.MemorySessionCache
	switch cfg.CacheBackend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		sessionCache = rediscache.NewSessionCache(client, cfg.RedisPrefix, cacheTTL)
	default:
		memCache = cache.NewMemorySessionCache(cacheTTL)
		sessionCache = memCache
	}

	platformClient := platform.NewClient(cfg.PlatformBaseURL)

	sessionSvc := services.NewSessionService(sessionRepo, sessionCache, platformClient, platformClient, cfg.MeetingBaseURL)
	participationSvc := services.NewParticipationService(sessionRepo, sessionCache, platformClient)

	sessionAPI := echoapi.NewSessionAPI(sessionSvc, participationSvc, mongodb.Ping)
	httpServer := server.NewHTTPServer(cfg, sessionAPI)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if memCache != nil {
		memCache.Close()
	}
	mongodb.Close(shutdownCtx)

	log.Info().Msg("Server gracefully stopped")
}
