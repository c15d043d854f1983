// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, Redis, репозитории, сервисы,
// HTTP-роутер, бота и планировщик.
package app

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/bot"
	"serotonyl.ru/labubu-roulette/internal/config"
	"serotonyl.ru/labubu-roulette/internal/db/postgres"
	"serotonyl.ru/labubu-roulette/internal/features/admin"
	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/payments"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/referral"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/features/settings"
	"serotonyl.ru/labubu-roulette/internal/features/users"
	"serotonyl.ru/labubu-roulette/internal/jobs"
	"serotonyl.ru/labubu-roulette/internal/notify"
	"serotonyl.ru/labubu-roulette/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	cfg       *config.Config
	DB        *pgxpool.Pool
	Redis     *goredis.Client
	BotAPI    *tgbotapi.BotAPI
	Bot       *bot.Bot
	Notify    *notify.Queue
	Scheduler *jobs.Scheduler
	Server    *server.Server
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Redis ===
	// Без Redis лимитер пропускает запросы, поэтому его недоступность не фатальна.
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis недоступен, лимиты запросов отключены до восстановления")
	}

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	queue := notify.NewQueue(botAPI, cfg.NotifyQueueSize)
	limiter := server.NewRateLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)

	// === 4. Репозитории ===
	settingsRepo := settings.NewRepository(pool, settings.DefaultsFromConfig(cfg))
	userRepo := users.NewRepository(pool)
	economyRepo := economy.NewRepository(pool)
	prizeRepo := prizes.NewRepository(pool)
	collectionRepo := collection.NewRepository(pool)
	rouletteRepo := roulette.NewRepository(pool, economyRepo, prizeRepo, collectionRepo, settingsRepo)
	referralRepo := referral.NewRepository(pool, userRepo, economyRepo)
	paymentRepo := payments.NewRepository(pool, economyRepo, settingsRepo)
	adminRepo := admin.NewRepository(pool)

	if err := seed(ctx, cfg, settingsRepo, prizeRepo); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	// === 5. Сервисы ===
	userService := users.NewService(userRepo)
	economyService := economy.NewService(economy.NewStore(economyRepo, pool))
	tracker := collection.NewTracker(collectionRepo)
	referralService := referral.NewService(referralRepo, userService, tracker, queue, referral.AmountsFromConfig(cfg))
	rouletteService := roulette.NewService(rouletteRepo, userService, tracker, referralService, economyService, queue, nil)
	paymentService := payments.NewService(paymentRepo, userService, payments.NewFreeKassa(cfg), botAPI, queue)
	adminService := admin.NewService(adminRepo, cfg.AdminPasswordHash, cfg.AdminSessionTTL)

	// === 6. HTTP ===
	router := server.NewRouter(server.Handlers{
		Roulette: roulette.NewHandler(rouletteService),
		Prizes:   prizes.NewHandler(prizeRepo),
		Referral: referral.NewHandler(referralService),
		Payments: payments.NewHandler(paymentService),
		Admin:    admin.NewHandler(adminService, rouletteRepo, settingsRepo, prizeRepo, economyService),
	}, limiter, cfg.HTTPRequestTimeout)

	// === 7. Бот и планировщик ===
	b := bot.New(botAPI, cfg, paymentService, queue, limiter)
	scheduler := jobs.NewScheduler(cfg.AppTimezone, economyService, adminService)

	return &App{
		cfg:       cfg,
		DB:        pool,
		Redis:     rdb,
		BotAPI:    botAPI,
		Bot:       b,
		Notify:    queue,
		Scheduler: scheduler,
		Server:    server.New(cfg, router),
	}, nil
}

// seed заполняет настройки и, если включено, стартовый каталог призов.
func seed(ctx context.Context, cfg *config.Config, settingsRepo *settings.Repository, prizeRepo *prizes.Repository) error {
	if err := settingsRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("ошибка заполнения настроек: %w", err)
	}
	if !cfg.GameSeedCatalog {
		return nil
	}
	n, err := prizeRepo.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("ошибка заполнения каталога призов: %w", err)
	}
	if n > 0 {
		log.WithField("count", n).Info("Каталог призов заполнен")
	}
	return nil
}

// Run запускает очередь уведомлений, бота, планировщик и HTTP-сервер.
// Блокируется до отмены ctx и дожидается остановки фоновых горутин.
func (a *App) Run(ctx context.Context) error {
	// Ошибка HTTP-сервера тоже останавливает бота и очередь.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Notify.Run(ctx)
	}()

	if a.cfg.BotEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Bot.Start(ctx)
		}()
	} else {
		log.Info("Опрос обновлений Telegram отключён")
	}

	if err := a.Scheduler.Start(ctx); err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("ошибка запуска планировщика: %w", err)
	}
	defer a.Scheduler.Stop()

	err := a.Server.Run(ctx)
	cancel()

	wg.Wait()
	sent, dropped := a.Notify.Stats()
	log.WithFields(log.Fields{
		"sent":    sent,
		"dropped": dropped,
	}).Info("Итоги очереди уведомлений")
	return err
}

// Close освобождает соединения.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия Redis")
	}
	a.DB.Close()
}
