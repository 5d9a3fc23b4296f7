package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"lifebook/internal/app"
	"lifebook/internal/config"
	"lifebook/internal/cooldown"
	"lifebook/internal/pipeline"
	"lifebook/internal/server"
	"lifebook/internal/usertoken"
	"lifebook/internal/util"
	"lifebook/pkg/ai"
	"lifebook/pkg/storage"
	"lifebook/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:    cfg.AuthJWKSURL,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Leeway:     jwtLeeway,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		log.Fatalf("failed to init jwks verifier: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	documentStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init document store: %v", err)
	}
	objectStore, err := storage.NewMinioStore(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}
	cooldownGate, err := cooldown.NewRedisGate(
		cfg.RedisAddr, cfg.RedisPassword, "lifebook:cooldown:memoir", cfg.MemoirCooldown())
	if err != nil {
		log.Fatalf("failed to init cooldown gate: %v", err)
	}

	textModel := ai.NewOpenAICompatGenerator(cfg.TextAPIBaseURL, cfg.TextAPIKey, cfg.TextModel)
	imageModel := ai.NewOpenAICompatImageGenerator(cfg.ImageAPIBaseURL, cfg.ImageAPIKey, cfg.ImageModel)

	var pipeOpts []pipeline.Option
	if cfg.MaxConcurrentImages > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithMaxConcurrentImages(cfg.MaxConcurrentImages))
	}
	if cfg.ImageIntervalMillis > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithImageInterval(time.Duration(cfg.ImageIntervalMillis)*time.Millisecond))
	}
	pipe := pipeline.New(textModel, imageModel, objectStore, documentStore, logger, pipeOpts...)

	appCore := app.New(documentStore, objectStore, textModel, imageModel, pipe, cooldownGate, logger)

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		TokenVerifier:              tokenVerifier,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
		TrustedProxies:             trustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("lifebook server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
