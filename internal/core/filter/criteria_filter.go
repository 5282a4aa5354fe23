package filter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

var lowerRu = cases.Lower(language.Russian)

// Matches - чистый предикат отбора объявления по критериям. Проверки идут в
// фиксированном порядке от самой дешевой и отсекающей к самой дорогой:
// цена → площадь → комнаты → время до метро → станции. Неизвестные
// опциональные поля ни одну проверку не заваливают.
func Matches(l domain.Listing, c domain.FilterCriteria) bool {
	if l.PriceMinor != nil && c.MaxPriceMinor > 0 && *l.PriceMinor > c.MaxPriceMinor {
		return false
	}

	if l.AreaSqm != nil && c.MinAreaSqm > 0 && *l.AreaSqm < c.MinAreaSqm {
		return false
	}

	if l.Rooms != nil && len(c.AllowedRoomCounts) > 0 && !c.RoomCountAllowed(*l.Rooms) {
		return false
	}

	if l.Metro.WalkMinutes != nil && c.MaxWalkMinutes > 0 && *l.Metro.WalkMinutes > c.MaxWalkMinutes {
		return false
	}

	return stationMatch(l, c)
}

// stationMatch: при распознанных станциях требуется пересечение с целевым
// набором. Если экстрактор станций не нашел, откатываемся к поиску подстроки
// по полному тексту - газетир мог пропустить станцию, упомянутую в свободном
// тексте вне просканированных полей.
func stationMatch(l domain.Listing, c domain.FilterCriteria) bool {
	if len(c.TargetStations) == 0 {
		return true
	}

	if len(l.Metro.Stations) > 0 {
		for _, target := range c.TargetStations {
			if l.Metro.HasStation(target) {
				return true
			}
		}
		return false
	}

	fullText := lowerRu.String(l.Title + " " + l.DescriptionText + " " + l.Location)
	for _, target := range c.TargetStations {
		if strings.Contains(fullText, lowerRu.String(target)) {
			return true
		}
	}
	return false
}
