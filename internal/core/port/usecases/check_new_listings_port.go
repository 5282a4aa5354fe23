package usecases

import (
	"context"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// CheckNewListingsPort - входящий порт полного цикла мониторинга:
// сбор, дедупликация, уведомления.
type CheckNewListingsPort interface {
	Execute(ctx context.Context) (domain.CycleResult, error)
}
