// Точка входа API-ETL — сервис мониторинга ETL-процессов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает каталог пользователей, конвейер токенов и сервисный слой,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/F-Elotlan-M/API-ETL/internal/api/handlers"
	"github.com/F-Elotlan-M/API-ETL/internal/api/middleware"
	"github.com/F-Elotlan-M/API-ETL/internal/config"
	"github.com/F-Elotlan-M/API-ETL/internal/database"
	"github.com/F-Elotlan-M/API-ETL/internal/directory"
	"github.com/F-Elotlan-M/API-ETL/internal/keycloak"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
	"github.com/F-Elotlan-M/API-ETL/internal/security"
	"github.com/F-Elotlan-M/API-ETL/internal/server"
	"github.com/F-Elotlan-M/API-ETL/internal/service"
)

func main() {
	// 0. .env для локального запуска, уже заданные переменные не перезаписываются
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("API-ETL запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("directory_mode", cfg.DirectoryMode),
	)

	if cfg.TokenEncryptionDefaults {
		logger.Warn("ETL_TOKEN_ENCRYPTION_KEY/ETL_TOKEN_ENCRYPTION_IV не заданы, используются значения по умолчанию")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Конвейер токенов: HS256 + AES-128-CBC
	codec, err := security.NewCodec(cfg.TokenEncryptionKey, cfg.TokenEncryptionIV)
	if err != nil {
		logger.Error("Ошибка инициализации шифрования токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	signer, err := security.NewSigner(cfg.JWTSecret, nil)
	if err != nil {
		logger.Error("Ошибка инициализации подписи токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pipeline := security.NewPipeline(codec, signer)

	// 6. Каталог пользователей
	var (
		dir        directory.Checker
		dirChecker handlers.ReadinessChecker
		targets    = service.DephealthTargets{DB: pgDB, PostgresURL: cfg.DatabaseURL()}
	)
	switch cfg.DirectoryMode {
	case config.DirectoryModeKeycloak:
		kcClient := keycloak.New(
			cfg.KeycloakURL,
			cfg.KeycloakRealm,
			cfg.KeycloakClientID,
			cfg.KeycloakClientSecret,
			nil,
			logger,
		)
		dir = directory.NewKeycloak(kcClient, logger)
		dirChecker = kcClient
		targets.KeycloakURL = kcClient.BaseURL()
		targets.KeycloakRealm = cfg.KeycloakRealm
		logger.Info("Каталог Keycloak",
			slog.String("url", cfg.KeycloakURL),
			slog.String("realm", cfg.KeycloakRealm),
		)
	default:
		static := directory.NewStatic(cfg.DirectoryUsers)
		dir = static
		dirChecker = static
		logger.Info("Статический каталог", slog.Int("users", len(cfg.DirectoryUsers)))
	}

	// 7. Repositories
	repos := repository.New(pool)
	txRunner := repository.NewTxRunner(pool)

	// 8. Services
	resolver := service.NewPermissionResolver(repos.Permissions, logger)
	svc := handlers.Services{
		Auth:            service.NewAuthService(dir, repos, pipeline, cfg.JWTExpiresIn, logger),
		Ingestion:       service.NewIngestionService(txRunner, logger),
		Acknowledgments: service.NewAcknowledgmentService(repos, txRunner, resolver, nil, logger),
		Reports:         service.NewReportService(repos.Reports, resolver, nil, nil),
		Users:           service.NewUserService(repos, txRunner, logger),
		ETLs:            service.NewETLService(repos.ETLs),
	}

	// 9. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), dirChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, svc, logger)
	tokenAuth := middleware.NewTokenAuth(pipeline, logger)

	// 10. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"api-etl",
		cfg.DephealthGroup,
		targets,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, tokenAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("API-ETL остановлен")
}
