package recovery

import (
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerRu = cases.Lower(language.Russian)

// Detector - чистый классификатор ответа источника: блокировка или нет.
// Ложноотрицательные срабатывания допустимы (их ловит эвристика пустых
// результатов выше по течению); ложноположительные недопустимы - обычная
// пустая выдача никогда не должна считаться блокировкой.
type Detector struct {
	markers        []string
	challengePaths []string
}

// NewDetector создает детектор с набором маркеров challenge-страниц и
// известных challenge-путей. Маркеры канонизируются в нижний регистр.
func NewDetector(markers, challengePaths []string) *Detector {
	canonical := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(lowerRu.String(m))
		if m != "" {
			canonical = append(canonical, m)
		}
	}
	return &Detector{markers: canonical, challengePaths: challengePaths}
}

// IsBlocked классифицирует сырой ответ. Блокировкой считается:
// rate-limit/запрет по HTTP-статусу, challenge-маркер в теле либо редирект
// на известный challenge-путь.
func (d *Detector) IsBlocked(statusCode int, finalURL, body string) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}

	for _, path := range d.challengePaths {
		if path != "" && strings.Contains(finalURL, path) {
			return true
		}
	}

	if body == "" {
		return false
	}
	text := lowerRu.String(body)
	for _, marker := range d.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
