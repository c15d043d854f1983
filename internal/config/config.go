// Package config загружает конфигурацию рулетки из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Адрес Mini App, который открывает кнопка «Играть»
	WebAppURL       string `envconfig:"WEBAPP_URL" default:"https://labubu.serotonyl.ru"`
	WelcomePhotoURL string `envconfig:"WELCOME_PHOTO_URL"`
	SupportURL      string `envconfig:"SUPPORT_URL"`
	BotEnabled      bool   `envconfig:"BOT_ENABLED" default:"true"`
	// Сколько апдейтов обрабатываем параллельно
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	NotifyQueueSize         int `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`

	// --- Database ---
	// Дефолт "postgres": имя сервиса в docker-compose, для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"roulette"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"roulette"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Redis ---
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPRequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"15s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Game ---
	// Значения по умолчанию, если в таблице settings нет ключа.
	// Стоимость спинов в копейках.
	GameSpinCost             int64 `envconfig:"GAME_SPIN_COST" default:"10000"`
	GamePremiumSpinCost      int64 `envconfig:"GAME_PREMIUM_SPIN_COST" default:"19900"`
	GameDuplicateRate        int64 `envconfig:"GAME_DUPLICATE_RATE" default:"200"`
	GameSpinCostStars        int64 `envconfig:"GAME_SPIN_COST_STARS" default:"120"`
	GamePremiumSpinCostStars int64 `envconfig:"GAME_PREMIUM_SPIN_COST_STARS" default:"199"`
	GameSeedCatalog          bool  `envconfig:"GAME_SEED_CATALOG" default:"true"`

	// --- Referral ---
	ReferralRegistrationBonus int64 `envconfig:"REFERRAL_REGISTRATION_BONUS" default:"500"`
	ReferralFirstSpinBonus    int64 `envconfig:"REFERRAL_FIRST_SPIN_BONUS" default:"1000"`
	ReferralTenthSpinBonus    int64 `envconfig:"REFERRAL_TENTH_SPIN_BONUS" default:"2500"`
	ReferralCollectionBonus   int64 `envconfig:"REFERRAL_COLLECTION_BONUS" default:"3000"`

	// --- FreeKassa ---
	FreeKassaMerchantID string `envconfig:"FREEKASSA_MERCHANT_ID"`
	FreeKassaSecret1    string `envconfig:"FREEKASSA_SECRET1"`
	FreeKassaSecret2    string `envconfig:"FREEKASSA_SECRET2"`
	FreeKassaPayURL     string `envconfig:"FREEKASSA_PAY_URL" default:"https://pay.freekassa.ru/"`

	// --- Admin ---
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// FreeKassaEnabled — заданы ли реквизиты магазина.
func (c *Config) FreeKassaEnabled() bool {
	return c.FreeKassaMerchantID != "" && c.FreeKassaSecret1 != "" && c.FreeKassaSecret2 != ""
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.GameSpinCost <= 0 || c.GamePremiumSpinCost <= 0 {
		return fmt.Errorf("стоимость спина должна быть > 0")
	}
	if c.GameDuplicateRate < 0 {
		return fmt.Errorf("GAME_DUPLICATE_RATE не может быть отрицательным")
	}
	// Строка referral_bonuses с нулевой суммой нарушает CHECK (amount > 0)
	if c.ReferralRegistrationBonus <= 0 || c.ReferralFirstSpinBonus <= 0 ||
		c.ReferralTenthSpinBonus <= 0 || c.ReferralCollectionBonus <= 0 {
		return fmt.Errorf("реферальные бонусы REFERRAL_*_BONUS должны быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
