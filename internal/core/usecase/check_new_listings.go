package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
	"github.com/mityay36/avito-bot/internal/core/port/usecases"
	"github.com/mityay36/avito-bot/internal/core/recovery"
)

// CheckNewListingsConfig - параметры полного цикла мониторинга.
type CheckNewListingsConfig struct {
	// NotifyPause - пауза между соседними уведомлениями, чтобы не упереться
	// в лимиты мессенджера.
	NotifyPause time.Duration

	// BlockNotifyInterval - минимальный интервал между уведомлениями о
	// блокировке.
	BlockNotifyInterval time.Duration
}

// CheckNewListingsUseCase - полный цикл мониторинга: сбор квалифицированных
// объявлений, дедупликация и доставка уведомлений. Отпечаток сохраняется
// ПОСЛЕ успешной отправки: при падении процесса между доставкой и записью
// возможно повторное уведомление, зато объявление не теряется навсегда.
type CheckNewListingsUseCase struct {
	pipeline usecases.AcquireListingsPort
	dedup    port.DedupStorePort
	sink     port.NotificationSinkPort
	recovery *recovery.Manager
	cfg      CheckNewListingsConfig

	lastBlockNotification time.Time
	now                   func() time.Time

	mu   sync.RWMutex
	last port.MonitorStatus
}

// NewCheckNewListingsUseCase создает use case мониторинга.
func NewCheckNewListingsUseCase(
	pipeline usecases.AcquireListingsPort,
	dedup port.DedupStorePort,
	sink port.NotificationSinkPort,
	recoveryManager *recovery.Manager,
	cfg CheckNewListingsConfig,
) *CheckNewListingsUseCase {
	return &CheckNewListingsUseCase{
		pipeline: pipeline,
		dedup:    dedup,
		sink:     sink,
		recovery: recoveryManager,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Execute выполняет один цикл мониторинга.
func (uc *CheckNewListingsUseCase) Execute(ctx context.Context) (domain.CycleResult, error) {
	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{"use_case": "CheckNewListings"})

	result, err := uc.pipeline.Execute(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrBlocked) {
			uc.notifyBlocked(ctx, ucLogger)
			uc.recordStatus(result, 0)
			return result, nil
		}
		uc.recordStatus(result, 0)
		return result, fmt.Errorf("monitor: acquisition cycle failed: %w", err)
	}

	switch result.Outcome {
	case domain.OutcomeSkippedCooldown:
		ucLogger.Info("Cycle skipped due to cooldown", nil)
		uc.recordStatus(result, 0)
		return result, nil
	case domain.OutcomeExhausted:
		ucLogger.Warn("All strategies exhausted, will retry next cycle", nil)
		uc.recordStatus(result, 0)
		return result, nil
	}

	newCount := 0
	for _, listing := range result.Listings {
		if err := ctx.Err(); err != nil {
			uc.recordStatus(result, newCount)
			return result, err
		}

		id := domain.IdentityOf(listing)
		itemLogger := ucLogger.WithFields(port.Fields{"fingerprint": string(id)})

		seen, err := uc.dedup.Exists(ctx, id)
		if err != nil {
			// Хранилище недоступно: безопаснее посчитать объявление уже
			// виденным, чем заспамить получателя дублями.
			itemLogger.Error("Dedup store lookup failed, treating listing as seen", err, nil)
			continue
		}
		if seen {
			continue
		}

		if err := uc.sink.NotifyListing(ctx, listing); err != nil {
			// Доставка не повторяется: объявление останется неотмеченным и
			// будет переотправлено в следующем цикле.
			itemLogger.Error("Failed to deliver listing notification", err, nil)
			continue
		}

		if err := uc.dedup.Record(ctx, id, listing); err != nil {
			itemLogger.Error("Failed to record delivered listing", err, nil)
		}
		newCount++

		if uc.cfg.NotifyPause > 0 {
			timer := time.NewTimer(uc.cfg.NotifyPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				uc.recordStatus(result, newCount)
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if newCount > 0 {
		ucLogger.Info("New listings delivered", port.Fields{"count": newCount})
		statusText := fmt.Sprintf("✅ Найдено %d новых квартир", newCount)
		if err := uc.sink.NotifyStatus(ctx, statusText); err != nil {
			ucLogger.Error("Failed to deliver status message", err, nil)
		}
	} else {
		ucLogger.Info("No new listings this cycle", nil)
	}

	uc.recordStatus(result, newCount)
	return result, nil
}

// notifyBlocked отправляет throttled-уведомление о блокировке со статистикой
// состояния восстановления.
func (uc *CheckNewListingsUseCase) notifyBlocked(ctx context.Context, logger port.LoggerPort) {
	now := uc.now()
	if !uc.lastBlockNotification.IsZero() && now.Sub(uc.lastBlockNotification) < uc.cfg.BlockNotifyInterval {
		logger.Debug("Block notification suppressed by throttle", nil)
		return
	}
	uc.lastBlockNotification = now

	text := fmt.Sprintf(
		"🚫 Avito блокирует запросы\n\n"+
			"🔢 Блокировка №%d\n"+
			"🎯 Подряд блокировок: %d\n"+
			"🌐 Заблокировано прокси: %d\n\n"+
			"🔄 Прокси переключен, сессия сброшена, взят кулдаун.\n"+
			"🤖 Бот продолжит работу автоматически.",
		uc.recovery.TotalBlocks(),
		uc.recovery.ConsecutiveBlocks(),
		uc.recovery.BlockedProxyCount(),
	)

	if err := uc.sink.NotifyStatus(ctx, text); err != nil {
		logger.Error("Failed to deliver block notification", err, nil)
	}
}

func (uc *CheckNewListingsUseCase) recordStatus(result domain.CycleResult, newCount int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.last = port.MonitorStatus{
		LastOutcome:       string(result.Outcome),
		LastCycleAt:       result.FinishedAt,
		LastNewListings:   newCount,
		ConsecutiveBlocks: uc.recovery.ConsecutiveBlocks(),
		BlockedProxies:    uc.recovery.BlockedProxyCount(),
	}
}

// Snapshot отдает последнее известное состояние мониторинга.
func (uc *CheckNewListingsUseCase) Snapshot() port.MonitorStatus {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.last
}
