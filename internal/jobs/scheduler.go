// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасная сверка баланса ЛАБУ
// с журналом транзакций и ночная очистка сессий админки.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// Расписания задач
const (
	reconcileSpec    = "@hourly"
	purgeSessionSpec = "0 4 * * *"
)

// Reconciler сверяет денормализованные балансы с журналом.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// SessionPurger удаляет истёкшие сессии админки.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	sessions   SessionPurger
}

// NewScheduler создаёт планировщик задач в часовом поясе timezone.
func NewScheduler(timezone string, reconciler Reconciler, sessions SessionPurger) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC+3", timezone)
		loc = common.MoscowLocation()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reconciler: reconciler,
		sessions:   sessions,
	}
}

// Start регистрирует и запускает задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(reconcileSpec, func() { s.reconcile(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(purgeSessionSpec, func() { s.purgeSessions(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("location", s.cron.Location().String()).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) reconcile(ctx context.Context) {
	log.Debug("[CRON] Сверка балансов ЛАБУ")
	fixed, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сверки балансов")
		return
	}
	if fixed > 0 {
		log.WithField("fixed", fixed).Warn("[CRON] Исправлены расхождения балансов")
	}
}

func (s *Scheduler) purgeSessions(ctx context.Context) {
	if _, err := s.sessions.PurgeExpired(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки сессий")
	}
}

// Stop останавливает планировщик и ждёт текущие задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
