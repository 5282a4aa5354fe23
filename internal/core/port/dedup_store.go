package port

import (
	"context"
	"time"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// DedupStorePort определяет контракт долговременного хранилища уже
// отправленных объявлений.
type DedupStorePort interface {
	// Exists сообщает, встречался ли отпечаток раньше.
	Exists(ctx context.Context, id domain.Fingerprint) (bool, error)

	// Record сохраняет отпечаток вместе с объявлением. Повторная запись того
	// же отпечатка не является ошибкой.
	Record(ctx context.Context, id domain.Fingerprint, listing domain.Listing) error

	// PurgeOlderThan удаляет записи старше указанного возраста и возвращает
	// количество удаленных.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
