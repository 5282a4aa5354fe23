package usecases

import (
	"context"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// AcquireListingsPort - входящий порт пайплайна сбора: один цикл
// fetch → extract → filter.
type AcquireListingsPort interface {
	Execute(ctx context.Context) (domain.CycleResult, error)
}
