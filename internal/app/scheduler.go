package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/service"
	"go.uber.org/zap"
)

// Sweeper применяет системные переходы к активным записям
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// SlotGenerator догенерирует слоты по еженедельным шаблонам врачей
type SlotGenerator interface {
	GenerateSlotsForAllRecurringSchedules(ctx context.Context, weeksAhead int) (int, error)
}

const (
	slotGenerationInterval = 24 * time.Hour
	slotGenerationWeeks    = 4
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper       Sweeper
	slots         SlotGenerator
	sweepInterval time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper Sweeper, slots SlotGenerator, sweepInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:       sweeper,
		slots:         slots,
		sweepInterval: sweepInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.sweepInterval))

	s.wg.Add(2)
	go s.every(ctx, "lifecycle sweep", s.sweepInterval, s.sweep)
	go s.every(ctx, "slot generation", slotGenerationInterval, s.generateSlots)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// every запускает task сразу и дальше раз в interval
func (s *Scheduler) every(ctx context.Context, name string, interval time.Duration, task func(context.Context)) {
	defer s.wg.Done()

	task(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			task(ctx)
		case <-s.stopChan:
			s.logger.Info("Task stopped", zap.String("task", name))
			return
		case <-ctx.Done():
			s.logger.Info("Task cancelled", zap.String("task", name))
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("Lifecycle sweep failed", zap.Error(err))
		return
	}

	if len(res.Advanced) == 0 && res.Skipped == 0 {
		return
	}
	fields := []zap.Field{
		zap.Int("checked", res.Checked),
		zap.Int("skipped", res.Skipped),
	}
	for trigger, n := range res.Advanced {
		fields = append(fields, zap.Int(string(trigger), n))
	}
	s.logger.Info("Lifecycle sweep completed", fields...)
}

// generateSlots держит слоты открытыми минимум на месяц вперёд
func (s *Scheduler) generateSlots(ctx context.Context) {
	count, err := s.slots.GenerateSlotsForAllRecurringSchedules(ctx, slotGenerationWeeks)
	if err != nil {
		s.logger.Error("Failed to generate slots", zap.Error(err))
		return
	}
	s.logger.Info("Automatic slot generation completed", zap.Int("slots_created", count))
}
