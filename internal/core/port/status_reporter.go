package port

import "time"

// MonitorStatus - снимок состояния мониторинга для операционной поверхности.
type MonitorStatus struct {
	LastOutcome       string    `json:"last_outcome"`
	LastCycleAt       time.Time `json:"last_cycle_at"`
	LastNewListings   int       `json:"last_new_listings"`
	ConsecutiveBlocks int       `json:"consecutive_blocks"`
	BlockedProxies    int       `json:"blocked_proxies"`
}

// StatusReporterPort отдает снимок состояния тому, кто его показывает
// (REST-обработчику).
type StatusReporterPort interface {
	Snapshot() MonitorStatus
}
