package port

import (
	"context"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// SessionStorePort - контракт персистентного хранилища browser-сессии.
// Куки загружаются перед каждой попыткой эмуляции браузера и сохраняются
// после каждой попытки, чтобы состояние переживало перезапуск процесса.
//
// Поврежденное или нечитаемое состояние трактуется как пустое и никогда
// не является фатальной ошибкой.
type SessionStorePort interface {
	Load(ctx context.Context) ([]domain.SessionCookie, error)
	Save(ctx context.Context, cookies []domain.SessionCookie) error

	// Drop уничтожает сохраненную сессию (после блокировки следующая попытка
	// должна начинаться с чистого листа).
	Drop(ctx context.Context) error
}
