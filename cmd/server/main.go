package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/attachments"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/cache"
	"github.com/yukikurage/taskdesk-api/internal/config"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/database"
	"github.com/yukikurage/taskdesk-api/internal/logging"
	"github.com/yukikurage/taskdesk-api/internal/repository"
	"github.com/yukikurage/taskdesk-api/internal/router"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	var closers []gfshutdown.Operation

	// Stores
	userRepo, taskRepo, err := openStores(ctx, cfg, log, &closers)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}

	// Optional stats cache
	var statsCache *cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("Stats cache disabled")
		} else {
			statsCache = cache.New(client, "taskdesk:", cfg.StatsCacheTTL)
			closers = append(closers, closeRedis(client))
		}
	}

	// Attachments
	remover, err := attachments.NewRemover(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to configure storage provider: %v", err)
	}
	attachmentManager := attachments.NewManager(remover, log.WithField("component", "attachments"))

	// AI suggestions
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hasher := auth.NewPasswordHasher(constants.BcryptCost)

	engine := router.New(router.Deps{
		Logger:       log,
		Issuer:       issuer,
		AuthService:  services.NewAuthService(userRepo, hasher, statsCache, log, cfg),
		TaskService:  services.NewTaskService(taskRepo, userRepo, attachmentManager, statsCache, aiService, log),
		UserService:  services.NewUserService(userRepo, taskRepo, hasher, statsCache, log),
		CORSOrigin:   cfg.CORSOrigin,
		SecureCookie: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Stores close only after in-flight requests have drained.
	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("Graceful shutdown initiated...")
			err := srv.Shutdown(ctx)
			for _, closeFn := range closers {
				if cerr := closeFn(ctx); cerr != nil {
					log.WithError(cerr).Warn("Failed to close resource")
				}
			}
			return err
		},
	})
	exitCode := <-wait
	log.Infof("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// openStores connects the backend selected by DB_DRIVER and registers its
// shutdown hook.
func openStores(ctx context.Context, cfg *config.Config, log *logrus.Logger, closers *[]gfshutdown.Operation) (repository.UserRepository, repository.TaskRepository, error) {
	if cfg.DBDriver == "mongodb" {
		client, db, err := database.ConnectMongo(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, nil, err
		}
		*closers = append(*closers, client.Disconnect)
		return repository.NewMongoUserRepository(db), repository.NewMongoTaskRepository(db), nil
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, log); err != nil {
		return nil, nil, err
	}
	*closers = append(*closers, func(context.Context) error {
		return database.Close(db)
	})
	return repository.NewUserRepository(db), repository.NewTaskRepository(db), nil
}

func closeRedis(client *redis.Client) gfshutdown.Operation {
	return func(context.Context) error {
		return client.Close()
	}
}
