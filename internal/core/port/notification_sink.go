package port

import (
	"context"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// NotificationSinkPort - контракт внешнего уведомителя. Ошибки доставки
// логируются вызывающим кодом и не приводят к повторам.
type NotificationSinkPort interface {
	// NotifyListing отправляет уведомление о новом подходящем объявлении.
	NotifyListing(ctx context.Context, listing domain.Listing) error

	// NotifyStatus отправляет служебное текстовое сообщение.
	NotifyStatus(ctx context.Context, text string) error
}
