package usecases

import "context"

// PurgeOldListingsPort - входящий порт ежедневной чистки хранилища дедупликации.
type PurgeOldListingsPort interface {
	Execute(ctx context.Context) (int64, error)
}
