package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mityay36/avito-bot/internal/constants"
	"github.com/mityay36/avito-bot/internal/core/domain"
)

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	Enabled           bool
	URL               string
	ExchangeName      string
	ListingRoutingKey string
	StatusRoutingKey  string
}

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL string
}

// TelegramConfig хранит доступ к боту
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

type StdoutLogConfig struct {
	Level string `mapstructure:"STDOUT_LOG_LEVEL" default:"debug"` // По умолчанию DEBUG
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string `mapstructure:"FLUENTBIT_LOG_LEVEL" default:"info"` // По умолчанию INFO
}

// MonitorConfig хранит политики цикла мониторинга
type MonitorConfig struct {
	CheckInterval       time.Duration // пауза между циклами
	CooldownDuration    time.Duration // карантин после блокировки
	DelayMin            time.Duration // нижняя граница троттлинга перед запросом
	DelayMax            time.Duration // верхняя граница троттлинга перед запросом
	NotifyPause         time.Duration // пауза между уведомлениями
	BlockNotifyInterval time.Duration // не чаще, чем шлем сообщения о блокировке
	MaxListingAge       time.Duration // окно свежести объявления
	Retention           time.Duration // срок хранения отпечатков
	SessionFile         string
	CriteriaFile        string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Database     DBconfig
	RabbitMQ     RabbitMQConfig
	Telegram     TelegramConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	Monitor      MonitorConfig
	HTTPPort     string
	SearchURL    string
	Proxies      []domain.ProxyEndpoint
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {

	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		// .env опционален: в контейнере переменные приходят из окружения.
		log.Printf("Info: Could not load .env file (path: %v): %v.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "avito-bot")

	// Читаем DATABASE URL
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if chatIDStr == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID environment variable is required")
	}
	cfg.Telegram.ChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
	}

	cfg.SearchURL = os.Getenv("AVITO_SEARCH_URL")
	if cfg.SearchURL == "" {
		return nil, fmt.Errorf("AVITO_SEARCH_URL environment variable is required")
	}

	// Читаем конфигурацию для RabbitMQ (опциональный канал доставки)
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	cfg.RabbitMQ.Enabled = cfg.RabbitMQ.URL != ""
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.ExchangeName = getEnvAsString("RABBITMQ_EXCHANGE", constants.ListingEventsExchange)
		cfg.RabbitMQ.ListingRoutingKey = getEnvAsString("RABBITMQ_LISTING_ROUTING_KEY", constants.RoutingKeyListingFound)
		cfg.RabbitMQ.StatusRoutingKey = getEnvAsString("RABBITMQ_STATUS_ROUTING_KEY", constants.RoutingKeyMonitorStatus)
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	cfg.HTTPPort = getEnvAsString("HTTP_PORT", "8080")

	cfg.Monitor.CheckInterval = getEnvAsDurationSeconds("CHECK_INTERVAL", 300)
	cfg.Monitor.CooldownDuration = time.Duration(getEnvAsInt("COOLDOWN_MINUTES", 30)) * time.Minute
	cfg.Monitor.DelayMin = getEnvAsDurationSeconds("REQUEST_DELAY_MIN", 2)
	cfg.Monitor.DelayMax = getEnvAsDurationSeconds("REQUEST_DELAY_MAX", 6)
	cfg.Monitor.NotifyPause = getEnvAsDurationSeconds("NOTIFY_PAUSE", 2)
	cfg.Monitor.BlockNotifyInterval = time.Duration(getEnvAsInt("BLOCK_NOTIFY_MINUTES", 30)) * time.Minute
	cfg.Monitor.MaxListingAge = time.Duration(getEnvAsInt("MAX_LISTING_AGE_HOURS", 48)) * time.Hour
	cfg.Monitor.Retention = time.Duration(getEnvAsInt("RETENTION_DAYS", 7)) * 24 * time.Hour
	cfg.Monitor.SessionFile = getEnvAsString("SESSION_FILE", "data/avito_session.json")
	cfg.Monitor.CriteriaFile = getEnvAsString("CRITERIA_FILE", "")

	if cfg.Monitor.DelayMax < cfg.Monitor.DelayMin {
		return nil, fmt.Errorf("REQUEST_DELAY_MAX must be >= REQUEST_DELAY_MIN")
	}

	cfg.Proxies, err = parseProxyList(os.Getenv("PROXY_LIST"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROXY_LIST: %w", err)
	}

	return cfg, nil
}

// parseProxyList разбирает список прокси из окружения. Формат элемента:
// "host:port" или "host:port:user:pass", разделитель - запятая.
func parseProxyList(raw string) ([]domain.ProxyEndpoint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var proxies []domain.ProxyEndpoint
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 2 && len(parts) != 4 {
			return nil, fmt.Errorf("proxy entry %q: expected host:port or host:port:user:pass", entry)
		}

		port, err := strconv.Atoi(parts[1])
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("proxy entry %q: invalid port", entry)
		}

		proxy := domain.ProxyEndpoint{Host: parts[0], Port: port}
		if len(parts) == 4 {
			proxy.Username = parts[2]
			proxy.Password = parts[3]
		}
		proxies = append(proxies, proxy)
	}
	return proxies, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsDurationSeconds читает переменную окружения как число секунд
func getEnvAsDurationSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
