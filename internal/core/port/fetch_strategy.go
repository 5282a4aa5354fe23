package port

import (
	"context"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// FetchStrategyPort - контракт одной стратегии получения сырой страницы.
// Реализации: структурированный API, разбор публичной выдачи, эмуляция браузера.
//
// Исходы различаются по ошибке: обернутый domain.ErrBlocked означает
// блокировку (маршрутизируется в RecoveryManager), любая другая ошибка -
// транзиентный сбой, пайплайн просто переходит к следующей стратегии.
type FetchStrategyPort interface {
	// Name возвращает имя стратегии для логов и статистики.
	Name() string

	// Fetch выполняет один запрос. proxy может быть nil - тогда запрос идет
	// напрямую.
	Fetch(ctx context.Context, search domain.SearchConfig, proxy *domain.ProxyEndpoint) (*domain.RawPage, error)
}
