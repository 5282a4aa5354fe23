package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/extractor"
	"github.com/mityay36/avito-bot/internal/core/filter"
	"github.com/mityay36/avito-bot/internal/core/port"
	"github.com/mityay36/avito-bot/internal/core/recovery"
)

// AcquireListingsConfig - параметры одного цикла сбора.
type AcquireListingsConfig struct {
	Search domain.SearchConfig

	// DelayMin/DelayMax - диапазон случайной паузы перед каждым запросом.
	// Это намеренный троттлинг, а не случайное ожидание I/O; пауза обязана
	// прерываться по сигналу завершения.
	DelayMin time.Duration
	DelayMax time.Duration

	// MaxListingAge - отсечка по возрасту объявления (0 = не отсекать).
	MaxListingAge time.Duration
}

// AcquireListingsUseCase - пайплайн сбора: цепочка fetch-стратегий с
// деградацией, классификация блокировок, извлечение полей и отбор по
// критериям. Дедупликацией и уведомлениями занимается вызывающий код.
type AcquireListingsUseCase struct {
	strategies []port.FetchStrategyPort
	detector   *recovery.Detector
	recovery   *recovery.Manager
	extract    *extractor.Extractor
	criteria   domain.FilterCriteria
	cfg        AcquireListingsConfig

	// resumeFrom - индекс стратегии, с которой продолжится следующий цикл
	// после блокировки. Никогда не откатываемся молча на начало цепочки
	// с тем же прокси.
	resumeFrom int

	rnd *rand.Rand
	now func() time.Time
}

// NewAcquireListingsUseCase создает пайплайн. Стратегии передаются в порядке
// деградации: API → разбор выдачи → эмуляция браузера.
func NewAcquireListingsUseCase(
	strategies []port.FetchStrategyPort,
	detector *recovery.Detector,
	recoveryManager *recovery.Manager,
	extract *extractor.Extractor,
	criteria domain.FilterCriteria,
	cfg AcquireListingsConfig,
) *AcquireListingsUseCase {
	return &AcquireListingsUseCase{
		strategies: strategies,
		detector:   detector,
		recovery:   recoveryManager,
		extract:    extract,
		criteria:   criteria,
		cfg:        cfg,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
}

// Execute выполняет один цикл сбора. Блокировка источника возвращается как
// ошибка, оборачивающая domain.ErrBlocked, поверх результата с исходом
// OutcomeExhausted.
func (uc *AcquireListingsUseCase) Execute(ctx context.Context) (domain.CycleResult, error) {
	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{"use_case": "AcquireListings"})

	if uc.recovery.InCooldown() {
		ucLogger.Info("Cycle skipped: cooldown is still active", port.Fields{
			"cooldown_until": uc.recovery.CooldownUntil(),
		})
		return domain.CycleResult{
			Outcome:    domain.OutcomeSkippedCooldown,
			FinishedAt: uc.now(),
		}, nil
	}

	start := uc.resumeFrom
	if start >= len(uc.strategies) {
		start = 0
	}

	for i := start; i < len(uc.strategies); i++ {
		if err := ctx.Err(); err != nil {
			return domain.CycleResult{Outcome: domain.OutcomeExhausted, FinishedAt: uc.now()}, err
		}

		strategy := uc.strategies[i]
		proxy := uc.recovery.PickProxy(ctx)
		attemptLogger := ucLogger.WithFields(port.Fields{"strategy": strategy.Name()})

		if err := uc.throttle(ctx); err != nil {
			return domain.CycleResult{Outcome: domain.OutcomeExhausted, FinishedAt: uc.now()}, err
		}

		page, err := strategy.Fetch(ctx, uc.cfg.Search, proxy)
		if err != nil {
			if errors.Is(err, domain.ErrBlocked) {
				return uc.handleBlocked(ctx, attemptLogger, i, proxy, err)
			}
			attemptLogger.Warn("Strategy failed, falling through to the next one", port.Fields{
				"error": err.Error(),
			})
			continue
		}

		body := page.Body
		if body == "" {
			body = page.Document
		}
		if uc.detector.IsBlocked(page.StatusCode, page.FinalURL, body) {
			err := fmt.Errorf("acquire: strategy %s: %w", strategy.Name(), domain.ErrBlocked)
			return uc.handleBlocked(ctx, attemptLogger, i, proxy, err)
		}

		if page.StatusCode >= 400 {
			attemptLogger.Warn("Non-blocking error status, falling through", port.Fields{
				"status": page.StatusCode,
			})
			continue
		}

		items := page.Items
		if len(items) == 0 && page.Document != "" {
			items = extractor.ItemsFromDocument(page.Document)
		}
		if len(items) == 0 {
			attemptLogger.Debug("Empty result from strategy, falling through", nil)
			continue
		}

		qualified := uc.qualify(attemptLogger, items)

		// Успешная попытка после кулдауна возвращает состояние в Healthy.
		uc.recovery.MarkRecovered()
		uc.resumeFrom = 0

		attemptLogger.Info("Acquisition cycle finished", port.Fields{
			"raw_items": len(items),
			"qualified": len(qualified),
		})

		return domain.CycleResult{
			Outcome:    domain.OutcomeSuccess,
			Listings:   qualified,
			Strategy:   strategy.Name(),
			FinishedAt: uc.now(),
		}, nil
	}

	uc.resumeFrom = 0
	ucLogger.Warn("All fetch strategies exhausted for this cycle", nil)
	return domain.CycleResult{Outcome: domain.OutcomeExhausted, FinishedAt: uc.now()}, nil
}

// handleBlocked маршрутизирует блокировку в RecoveryManager и завершает цикл.
// Следующий цикл продолжит с той же стратегии, но уже с другим прокси.
func (uc *AcquireListingsUseCase) handleBlocked(
	ctx context.Context,
	logger port.LoggerPort,
	strategyIdx int,
	proxy *domain.ProxyEndpoint,
	cause error,
) (domain.CycleResult, error) {
	uc.recovery.HandleBlock(ctx, proxy)
	uc.resumeFrom = strategyIdx

	logger.Warn("Source blocked the request, cycle aborted", port.Fields{
		"consecutive_blocks": uc.recovery.ConsecutiveBlocks(),
	})

	return domain.CycleResult{
		Outcome:    domain.OutcomeExhausted,
		FinishedAt: uc.now(),
	}, cause
}

// qualify извлекает каждый сырой элемент, отбрасывает неудачные извлечения и
// устаревшие объявления, затем применяет фильтр критериев.
func (uc *AcquireListingsUseCase) qualify(logger port.LoggerPort, items []domain.RawItem) []domain.Listing {
	now := uc.now()
	qualified := make([]domain.Listing, 0, len(items))

	for _, item := range items {
		listing, err := uc.extract.Extract(item, now)
		if err != nil {
			logger.Debug("Item dropped during extraction", port.Fields{"error": err.Error()})
			continue
		}

		if uc.cfg.MaxListingAge > 0 {
			if listing.PublishedAt != nil && now.Sub(*listing.PublishedAt) > uc.cfg.MaxListingAge {
				continue
			}
			if listing.PublishedAt == nil && item.PublishedLabel != "" && !extractor.IsRecentText(item.PublishedLabel) {
				continue
			}
		}

		if !filter.Matches(listing, uc.criteria) {
			continue
		}
		qualified = append(qualified, listing)
	}

	return qualified
}

// throttle выдерживает случайную паузу в заданном диапазоне, прерываясь по
// отмене контекста.
func (uc *AcquireListingsUseCase) throttle(ctx context.Context) error {
	if uc.cfg.DelayMax <= 0 {
		return nil
	}
	min := uc.cfg.DelayMin
	if min > uc.cfg.DelayMax {
		min = uc.cfg.DelayMax
	}
	delay := min + time.Duration(uc.rnd.Int63n(int64(uc.cfg.DelayMax-min)+1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
