package rest

import (
	"encoding/json"
	"net/http"

	"github.com/mityay36/avito-bot/internal/core/port"
)

// MonitorHandlers - HTTP-обработчики операционной поверхности.
type MonitorHandlers struct {
	reporter port.StatusReporterPort
}

func NewMonitorHandlers(reporter port.StatusReporterPort) *MonitorHandlers {
	return &MonitorHandlers{reporter: reporter}
}

// HandleHealth отвечает, что процесс жив.
func (h *MonitorHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleStatus отдает снимок состояния последнего цикла мониторинга.
func (h *MonitorHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.reporter.Snapshot())
}
