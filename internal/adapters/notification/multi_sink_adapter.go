package notification_adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

// MultiSinkAdapter веером рассылает уведомления по нескольким каналам.
// Отказ одного канала не мешает остальным, ошибки собираются вместе.
type MultiSinkAdapter struct {
	sinks []port.NotificationSinkPort
}

func NewMultiSinkAdapter(sinks ...port.NotificationSinkPort) (port.NotificationSinkPort, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("multisink: at least one sink is required")
	}
	return &MultiSinkAdapter{sinks: sinks}, nil
}

func (m *MultiSinkAdapter) NotifyListing(ctx context.Context, listing domain.Listing) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.NotifyListing(ctx, listing); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSinkAdapter) NotifyStatus(ctx context.Context, text string) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.NotifyStatus(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
