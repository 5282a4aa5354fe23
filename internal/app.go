package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mityay36/avito-bot/internal/adapters/avitofetcher"
	"github.com/mityay36/avito-bot/internal/adapters/filestorage"
	logger_adapter "github.com/mityay36/avito-bot/internal/adapters/logger"
	notification_adapter "github.com/mityay36/avito-bot/internal/adapters/notification"
	postgres_adapter "github.com/mityay36/avito-bot/internal/adapters/postgres"
	rabbitmq_adapter "github.com/mityay36/avito-bot/internal/adapters/rabbitmq"
	"github.com/mityay36/avito-bot/internal/adapters/rest"
	telegram_adapter "github.com/mityay36/avito-bot/internal/adapters/telegram"
	"github.com/mityay36/avito-bot/internal/configs"
	"github.com/mityay36/avito-bot/internal/constants"
	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/extractor"
	"github.com/mityay36/avito-bot/internal/core/port"
	"github.com/mityay36/avito-bot/internal/core/port/usecases"
	"github.com/mityay36/avito-bot/internal/core/recovery"
	"github.com/mityay36/avito-bot/internal/core/usecase"
)

const startupStatusText = `🚀 Мониторинг Avito запущен!

🛡️ Возможности:
• Цепочка стратегий: API → выдача → браузер
• Автоматическая ротация прокси
• Сохранение browser-сессии между перезапусками
• Умная обработка блокировок IP
• Уведомления о статусе работы

⚡ Готов к работе!`

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	fluentClient *fluent.Fluent
	rabbitSink   *rabbitmq_adapter.RabbitMQListingEventsAdapter
	logger       port.LoggerPort
	baseLogger   port.LoggerPort

	sink       port.NotificationSinkPort
	checkUC    usecases.CheckNewListingsPort
	purgeUC    usecases.PurgeOldListingsPort
	restServer *rest.Server
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	criteria, err := configs.LoadFilterCriteria(appConfig.Monitor.CriteriaFile)
	if err != nil {
		return nil, fmt.Errorf("error loading filter criteria: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false, // текстовый формат
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	// Добавляем Fluent Bit логгер, если он включен в конфигурации
	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluent.New(fluent.Config{
			FluentHost: appConfig.FluentBit.Host,
			FluentPort: appConfig.FluentBit.Port,
			TagPrefix:  appConfig.AppName,
			Async:      true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	// Создаем наш композитный логгер
	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. СОЗДАЕМ БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ С КОНТЕКСТОМ ---
	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 3. НИЗКОУРОВНЕВЫЕ ЗАВИСИМОСТИ ---
	dbPool, err := pgxpool.New(context.Background(), appConfig.Database.URL)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := dbPool.Ping(context.Background()); err != nil {
		dbPool.Close()
		appLogger.Error("PostgreSQL ping failed", err, nil)
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	sessionStore, err := filestorage.NewSessionStoreAdapter(appConfig.Monitor.SessionFile)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	// --- 4. ЯДРО ВОССТАНОВЛЕНИЯ И ИЗВЛЕЧЕНИЯ ---
	detector := recovery.NewDetector(constants.ChallengeMarkers, constants.ChallengePaths)
	recoveryManager := recovery.NewManager(
		domain.NewBlockState(),
		appConfig.Proxies,
		appConfig.Monitor.CooldownDuration,
		sessionStore,
	)
	fieldExtractor := extractor.New(criteria.TargetStations, constants.AvitoBaseURL)

	// --- 5. FETCH-СТРАТЕГИИ ---
	fetcherAdapter, err := avitofetcher.NewAvitoFetcherAdapter(avitofetcher.Config{
		APIURL:  constants.AvitoAPIURL,
		BaseURL: constants.AvitoBaseURL,
	})
	if err != nil {
		appLogger.Error("Failed to create Avito Fetcher Adapter", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize avito fetcher: %w", err)
	}
	appLogger.Info("Avito Fetcher Adapter initialized.", nil)

	strategies := []port.FetchStrategyPort{
		avitofetcher.NewAPIStrategy(fetcherAdapter),
		avitofetcher.NewMarkupStrategy(fetcherAdapter),
		avitofetcher.NewBrowserStrategy(sessionStore, ""),
	}

	search := domain.SearchConfig{
		Name:       "Квартиры_Москва_Аренда",
		LocationID: constants.Moscow,
		CategoryID: constants.ApartmentCategory,
		RentParam:  constants.RentParamLongTerm,
		PriceMax:   criteria.MaxPriceMinor,
		AreaMin:    criteria.MinAreaSqm,
		Limit:      constants.MaxAdsAmount,
		SortBy:     constants.SortByDateDesc,
		SearchURL:  appConfig.SearchURL,
	}

	acquireUC := usecase.NewAcquireListingsUseCase(
		strategies,
		detector,
		recoveryManager,
		fieldExtractor,
		criteria,
		usecase.AcquireListingsConfig{
			Search:        search,
			DelayMin:      appConfig.Monitor.DelayMin,
			DelayMax:      appConfig.Monitor.DelayMax,
			MaxListingAge: appConfig.Monitor.MaxListingAge,
		},
	)

	// --- 6. ИСХОДЯЩИЕ АДАПТЕРЫ ---
	dedupRepo, err := postgres_adapter.NewPostgresDedupRepository(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize dedup repository: %w", err)
	}

	telegramSink, err := telegram_adapter.NewTelegramNotificationSink(
		appConfig.Telegram.BotToken,
		appConfig.Telegram.ChatID,
		criteria,
	)
	if err != nil {
		appLogger.Error("Failed to create Telegram sink", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to initialize telegram sink: %w", err)
	}

	sinks := []port.NotificationSinkPort{telegramSink}

	var rabbitSink *rabbitmq_adapter.RabbitMQListingEventsAdapter
	if appConfig.RabbitMQ.Enabled {
		rabbitSink, err = rabbitmq_adapter.NewRabbitMQListingEventsAdapter(rabbitmq_adapter.Config{
			URL:               appConfig.RabbitMQ.URL,
			ExchangeName:      appConfig.RabbitMQ.ExchangeName,
			ListingRoutingKey: appConfig.RabbitMQ.ListingRoutingKey,
			StatusRoutingKey:  appConfig.RabbitMQ.StatusRoutingKey,
		})
		if err != nil {
			appLogger.Error("Failed to create RabbitMQ sink", err, nil)
			dbPool.Close()
			return nil, fmt.Errorf("failed to initialize rabbitmq sink: %w", err)
		}
		sinks = append(sinks, rabbitSink)
		appLogger.Info("RabbitMQ listing events sink initialized.", nil)
	}

	notificationSink, err := notification_adapter.NewMultiSinkAdapter(sinks...)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create notification multi-sink: %w", err)
	}

	appLogger.Info("All outgoing adapters initialized.", nil)

	// --- 7. USE CASES ---
	checkUC := usecase.NewCheckNewListingsUseCase(
		acquireUC,
		dedupRepo,
		notificationSink,
		recoveryManager,
		usecase.CheckNewListingsConfig{
			NotifyPause:         appConfig.Monitor.NotifyPause,
			BlockNotifyInterval: appConfig.Monitor.BlockNotifyInterval,
		},
	)
	purgeUC := usecase.NewPurgeOldListingsUseCase(dedupRepo, recoveryManager, appConfig.Monitor.Retention)
	appLogger.Info("All use cases initialized.", nil)

	// --- 8. ОПЕРАЦИОННАЯ ПОВЕРХНОСТЬ ---
	restServer := rest.NewServer(appConfig.HTTPPort, rest.NewMonitorHandlers(checkUC), baseLogger)

	application := &App{
		config:       appConfig,
		dbPool:       dbPool,
		fluentClient: fluentClient,
		rabbitSink:   rabbitSink,
		logger:       appLogger,
		baseLogger:   baseLogger,
		sink:         notificationSink,
		checkUC:      checkUC,
		purgeUC:      purgeUC,
		restServer:   restServer,
	}

	return application, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := a.restServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("Error stopping REST server", err, nil)
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		statusCtx := contextkeys.ContextWithLogger(shutdownCtx, a.baseLogger)
		if err := a.sink.NotifyStatus(statusCtx, "🛑 Мониторинг остановлен"); err != nil {
			a.logger.Error("Failed to deliver shutdown status", err, nil)
		}

		if a.rabbitSink != nil {
			if err := a.rabbitSink.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ sink", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			a.logger.Info("Closing Fluent Bit connection...", nil)
			if err := a.fluentClient.Close(); err != nil {
				log.Printf("App: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	serverErrors := make(chan error, 1)
	go func() {
		if err := a.restServer.Start(); err != nil {
			serverErrors <- err
		}
	}()

	startupCtx := contextkeys.ContextWithLogger(appCtx, a.baseLogger)
	if err := a.sink.NotifyStatus(startupCtx, startupStatusText); err != nil {
		a.logger.Error("Failed to deliver startup status", err, nil)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.monitorLoop(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-serverErrors:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down", nil)
	}

	cancelApp()

	return nil
}

// monitorLoop гоняет циклы проверки с джиттером и запускает ежедневную чистку
// в 06:00. Сигналы завершения обрабатываются между шагами.
func (a *App) monitorLoop(ctx context.Context) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Первоначальная проверка сразу после старта.
	a.runCheckCycle(ctx)

	cleanupTimer := time.NewTimer(untilNextCleanup(time.Now()))
	defer cleanupTimer.Stop()

	for {
		// Джиттер до 10% интервала размывает периодичность запросов.
		jitter := time.Duration(rnd.Int63n(int64(a.config.Monitor.CheckInterval)/10 + 1))
		checkTimer := time.NewTimer(a.config.Monitor.CheckInterval + jitter)

		select {
		case <-ctx.Done():
			checkTimer.Stop()
			return
		case <-checkTimer.C:
			a.runCheckCycle(ctx)
		case <-cleanupTimer.C:
			checkTimer.Stop()
			a.runDailyCleanup(ctx)
			cleanupTimer.Reset(untilNextCleanup(time.Now()))
		}
	}
}

// runCheckCycle выполняет один цикл мониторинга с собственным cycle_id в логах.
func (a *App) runCheckCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	cycleLogger := a.baseLogger.WithFields(port.Fields{"cycle_id": cycleID})
	cycleCtx := contextkeys.ContextWithLogger(ctx, cycleLogger)
	cycleCtx = contextkeys.ContextWithTraceID(cycleCtx, cycleID)

	result, err := a.checkUC.Execute(cycleCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.Error("Monitoring cycle failed", err, port.Fields{"cycle_id": cycleID})

		errText := fmt.Sprintf("❌ Критическая ошибка: %v", err)
		if notifyErr := a.sink.NotifyStatus(cycleCtx, errText); notifyErr != nil {
			a.logger.Error("Failed to deliver error status", notifyErr, nil)
		}
		return
	}

	a.logger.Info("Monitoring cycle finished", port.Fields{
		"cycle_id": cycleID,
		"outcome":  string(result.Outcome),
		"listings": len(result.Listings),
	})
}

// runDailyCleanup чистит устаревшие записи дедупликации.
func (a *App) runDailyCleanup(ctx context.Context) {
	cleanupCtx := contextkeys.ContextWithLogger(ctx, a.baseLogger)
	deleted, err := a.purgeUC.Execute(cleanupCtx)
	if err != nil {
		a.logger.Error("Daily cleanup failed", err, nil)
		return
	}
	a.logger.Info("Daily cleanup finished", port.Fields{"deleted": deleted})
}

// untilNextCleanup возвращает время до ближайших 06:00 локального времени.
func untilNextCleanup(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// Возвращаем безопасное значение по умолчанию и логируем предупреждение
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
