package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/port"
	"github.com/mityay36/avito-bot/internal/core/recovery"
)

// PurgeOldListingsUseCase - ежедневное обслуживание: чистка устаревших
// записей дедупликации и сброс серии блокировок.
type PurgeOldListingsUseCase struct {
	dedup     port.DedupStorePort
	recovery  *recovery.Manager
	retention time.Duration
}

// NewPurgeOldListingsUseCase создает use case обслуживания.
func NewPurgeOldListingsUseCase(
	dedup port.DedupStorePort,
	recoveryManager *recovery.Manager,
	retention time.Duration,
) *PurgeOldListingsUseCase {
	return &PurgeOldListingsUseCase{
		dedup:     dedup,
		recovery:  recoveryManager,
		retention: retention,
	}
}

// Execute удаляет записи старше периода хранения и возвращает их количество.
func (uc *PurgeOldListingsUseCase) Execute(ctx context.Context) (int64, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "PurgeOldListings",
	})

	deleted, err := uc.dedup.PurgeOlderThan(ctx, uc.retention)
	if err != nil {
		logger.Error("Failed to purge old dedup records", err, nil)
		return 0, fmt.Errorf("purge: %w", err)
	}

	if deleted > 0 {
		logger.Info("Old dedup records purged", port.Fields{"deleted": deleted})
	}

	// Суточный сброс статистики блокировок, как и у ежедневной чистки БД.
	uc.recovery.MarkRecovered()

	return deleted, nil
}
