package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/teabranch/amazon-chat-completions-server/internal/auth"
	"github.com/teabranch/amazon-chat-completions-server/internal/config"
	"github.com/teabranch/amazon-chat-completions-server/internal/files"
	"github.com/teabranch/amazon-chat-completions-server/internal/httpapi"
	"github.com/teabranch/amazon-chat-completions-server/internal/knowledge"
	"github.com/teabranch/amazon-chat-completions-server/internal/orchestrator"
	"github.com/teabranch/amazon-chat-completions-server/internal/providerclient"
	"github.com/teabranch/amazon-chat-completions-server/internal/retry"
	"github.com/teabranch/amazon-chat-completions-server/internal/router"
	"github.com/teabranch/amazon-chat-completions-server/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/gateway.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	loader := config.NewLoader(*configPath, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Warn("database not reachable (file metadata will fail)", "error", err)
	} else {
		logger.Info("database connected")
	}

	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (file metadata cache disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	awsCfg, err := providerclient.ResolveCredentials(context.Background(), providerclient.CredentialConfig{
		Region:                cfg.AWS.Region,
		StaticAccessKeyID:     cfg.AWS.StaticKey,
		StaticSecretAccessKey: cfg.AWS.StaticSecret,
		StaticSessionToken:    cfg.AWS.SessionToken,
		ProfileName:           cfg.AWS.ProfileName,
		AssumeRoleARN:         cfg.AWS.AssumedRoleARN,
		AssumeRoleExternalID:  cfg.AWS.AssumedRoleExternalID,
		AssumeRoleSessionName: cfg.AWS.AssumedRoleSessionName,
		AssumeRoleDuration:    cfg.AWS.AssumedRoleDuration,
		WebIdentityTokenFile:  cfg.AWS.WebIdentityTokenFile,
		WebIdentityRoleARN:    cfg.AWS.WebIdentityRoleARN,
	})
	if err != nil {
		logger.Error("failed to resolve AWS credentials", "error", err)
		os.Exit(1)
	}

	bedrockClient := providerclient.NewBedrockClientFromConfig(awsCfg)
	openaiClient := providerclient.NewOpenAIClient(providerclient.OpenAIClientConfig{
		BaseURL:        cfg.OpenAI.BaseURL,
		APIKey:         cfg.OpenAI.APIKey,
		RequestTimeout: cfg.OpenAI.Timeout,
	})

	metadataStore := files.NewMetadataStore(dbPool, rdb)
	objectStore := files.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Files.Bucket)
	injector := files.NewInjector(metadataStore, objectStore)

	kbBackend := knowledge.NewBedrockBackend(bedrockagentruntime.NewFromConfig(awsCfg))
	thresholds := knowledge.Thresholds{
		DirectRAG:           cfg.Knowledge.DirectRAGThreshold,
		ContextAugmentation: cfg.Knowledge.ContextAugmentationThreshold,
	}
	retriever := knowledge.NewRetriever(kbBackend, thresholds)

	modelRouter := router.New(router.MaxTokensDefaults{
		Anthropic: cfg.MaxTokens.Anthropic,
		Titan:     cfg.MaxTokens.Titan,
		Pluggable: cfg.MaxTokens.Pluggable,
	})
	health := providerclient.NewHealthTracker(5, 15*time.Second)
	metrics := telemetry.NewMetrics()
	retryCfg := retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.WaitMinSeconds,
		MaxBackoff:  cfg.Retry.WaitMaxSeconds,
	}

	orch := orchestrator.New(modelRouter, openaiClient, bedrockClient, injector, retriever, thresholds, retryCfg, health, metrics)

	chatHandler := httpapi.NewChatHandler(orch)
	filesHandler := httpapi.NewFilesHandler(metadataStore, objectStore)
	modelsHandler := httpapi.NewModelsHandler()
	knowledgeHandler := httpapi.NewKnowledgeHandler(cfg.Knowledge.KnowledgeBases, retriever)

	loader.OnReload(func() {
		logger.Info("configuration reloaded")
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/health", healthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.ServerAPIKey))

		r.Post("/chat/completions", chatHandler.Completions)
		r.Get("/chat/completions/health", chatHandler.Health)

		r.Get("/models", modelsHandler.List)
		r.Get("/models/{id}", func(w http.ResponseWriter, req *http.Request) {
			modelsHandler.Get(w, req, chi.URLParam(req, "id"))
		})

		r.Post("/files", filesHandler.Upload)
		r.Get("/files", filesHandler.List)
		r.Get("/files/health", filesHandler.Health)
		r.Get("/files/{id}", func(w http.ResponseWriter, req *http.Request) {
			filesHandler.Get(w, req, chi.URLParam(req, "id"))
		})
		r.Get("/files/{id}/content", func(w http.ResponseWriter, req *http.Request) {
			filesHandler.Content(w, req, chi.URLParam(req, "id"))
		})
		r.Delete("/files/{id}", func(w http.ResponseWriter, req *http.Request) {
			filesHandler.Delete(w, req, chi.URLParam(req, "id"))
		})

		r.Get("/knowledge-bases", knowledgeHandler.List)
		r.Get("/knowledge-bases/{id}", func(w http.ResponseWriter, req *http.Request) {
			knowledgeHandler.Get(w, req, chi.URLParam(req, "id"))
		})
		r.Post("/knowledge-bases/{id}/query", func(w http.ResponseWriter, req *http.Request) {
			knowledgeHandler.Query(w, req, chi.URLParam(req, "id"))
		})
		r.Post("/knowledge-bases/{id}/retrieve-and-generate", func(w http.ResponseWriter, req *http.Request) {
			knowledgeHandler.RetrieveAndGenerate(w, req, chi.URLParam(req, "id"))
		})
		r.Delete("/knowledge-bases/{id}", func(w http.ResponseWriter, req *http.Request) {
			knowledgeHandler.Delete(w, req, chi.URLParam(req, "id"))
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// requestIDMiddleware assigns a request id before auth or any handler runs,
// since both auth.Middleware and the chat/files/knowledge handlers read it
// back from the response header rather than request context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
