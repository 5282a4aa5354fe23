package recovery

import (
	"context"
	"math/rand"
	"time"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

// Manager - машина состояний восстановления после блокировок:
// Healthy ↔ Blocked(cooldownUntil). Владеет BlockState; пайплайн только
// читает его через методы менеджера.
type Manager struct {
	state    *domain.BlockState
	proxies  []domain.ProxyEndpoint
	cooldown time.Duration
	sessions port.SessionStorePort
	rnd      *rand.Rand
	now      func() time.Time
}

// NewManager создает менеджер поверх явного состояния. Состояние передается
// снаружи, чтобы тесты могли конструировать его под каждый случай.
func NewManager(
	state *domain.BlockState,
	proxies []domain.ProxyEndpoint,
	cooldown time.Duration,
	sessions port.SessionStorePort,
) *Manager {
	return &Manager{
		state:    state,
		proxies:  proxies,
		cooldown: cooldown,
		sessions: sessions,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// InCooldown сообщает, действует ли еще кулдаун. Цикл, начатый внутри
// кулдауна, пропускается целиком - без единого запроса к источнику.
func (m *Manager) InCooldown() bool {
	return !m.state.CooldownUntil.IsZero() && m.now().Before(m.state.CooldownUntil)
}

// CooldownUntil возвращает момент окончания кулдауна (нулевое время = нет).
func (m *Manager) CooldownUntil() time.Time {
	return m.state.CooldownUntil
}

// HandleBlock - переход Healthy → Blocked: помечает текущий прокси,
// увеличивает счетчики, взводит кулдаун и сбрасывает browser-сессию, чтобы
// следующая попытка начиналась с чистого листа.
func (m *Manager) HandleBlock(ctx context.Context, proxy *domain.ProxyEndpoint) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "RecoveryManager",
	})

	if proxy != nil {
		m.state.BlockedProxies[proxy.Key()] = struct{}{}
	}
	m.state.ConsecutiveBlocks++
	m.state.TotalBlocks++
	m.state.CooldownUntil = m.now().Add(m.cooldown)

	if err := m.sessions.Drop(ctx); err != nil {
		logger.Warn("Failed to drop browser session after block", port.Fields{"error": err.Error()})
	}

	logger.Warn("Block handled: proxy marked, cooldown armed", port.Fields{
		"blocked_proxies":    len(m.state.BlockedProxies),
		"consecutive_blocks": m.state.ConsecutiveBlocks,
		"cooldown_until":     m.state.CooldownUntil,
	})
}

// MarkRecovered - переход Blocked → Healthy после успешной попытки:
// кулдаун снят, серия блокировок прервана. Список заблокированных прокси
// при этом сохраняется - эти адреса источник уже видел.
func (m *Manager) MarkRecovered() {
	m.state.CooldownUntil = time.Time{}
	m.state.ConsecutiveBlocks = 0
}

// PickProxy равновероятно выбирает прокси из незаблокированной части пула.
// Если заблокирован весь пул, список блокировок сбрасывается полностью и
// выбор продолжается: суммарный простой ограничен одним полным оборотом
// пула, а не вечным отказом.
func (m *Manager) PickProxy(ctx context.Context) *domain.ProxyEndpoint {
	if len(m.proxies) == 0 {
		return nil
	}

	available := m.availableProxies()
	if len(available) == 0 {
		logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
			"component": "RecoveryManager",
		})
		logger.Warn("All proxies are blocked, resetting the block list", port.Fields{
			"pool_size": len(m.proxies),
		})
		m.state.BlockedProxies = make(map[string]struct{})
		available = m.proxies
	}

	picked := available[m.rnd.Intn(len(available))]
	return &picked
}

// BlockedProxyCount возвращает размер текущего черного списка (для статусных
// уведомлений).
func (m *Manager) BlockedProxyCount() int {
	return len(m.state.BlockedProxies)
}

// ConsecutiveBlocks возвращает длину текущей серии блокировок.
func (m *Manager) ConsecutiveBlocks() int {
	return m.state.ConsecutiveBlocks
}

// TotalBlocks возвращает количество блокировок за все время работы.
func (m *Manager) TotalBlocks() int {
	return m.state.TotalBlocks
}

func (m *Manager) availableProxies() []domain.ProxyEndpoint {
	available := make([]domain.ProxyEndpoint, 0, len(m.proxies))
	for _, p := range m.proxies {
		if _, blocked := m.state.BlockedProxies[p.Key()]; !blocked {
			available = append(available, p)
		}
	}
	return available
}
