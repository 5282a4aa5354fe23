package extractor

import (
	"fmt"
	"strings"
	"time"
)

// Возрастные метки объявления. Только для отображения: ни фильтрация, ни
// дедупликация на них не опираются.
const (
	labelJustNow   = "📅 Только что"
	labelToday     = "📅 Сегодня"
	labelYesterday = "📅 Вчера"
	labelRecent    = "📅 Недавно"
)

// RecencyLabel переводит время публикации в человекочитаемую "свежесть".
func RecencyLabel(published, now time.Time) string {
	if published.After(now) {
		return labelJustNow
	}

	sameDay := published.Year() == now.Year() && published.YearDay() == now.YearDay()
	yesterday := now.AddDate(0, 0, -1)
	isYesterday := published.Year() == yesterday.Year() && published.YearDay() == yesterday.YearDay()

	switch {
	case sameDay:
		hours := now.Sub(published).Hours()
		if hours < 1 {
			return labelJustNow
		}
		if hours < 24 {
			return fmt.Sprintf("📅 %d ч назад", int(hours))
		}
		return labelToday
	case isYesterday:
		return labelYesterday
	default:
		return labelRecent
	}
}

// recencyLabelFromText распознает текстовую дату с HTML-карточки.
func recencyLabelFromText(raw string) string {
	text := strings.TrimSpace(lowerRu.String(raw))

	switch {
	case strings.Contains(text, "только что"), strings.Contains(text, "минут назад"):
		return labelJustNow
	case strings.Contains(text, "час назад"),
		strings.Contains(text, "часа назад"),
		strings.Contains(text, "часов назад"):
		return "📅 Несколько часов назад"
	case strings.Contains(text, "сегодня"):
		return labelToday
	case strings.Contains(text, "вчера"):
		return labelYesterday
	default:
		return labelRecent
	}
}

// IsRecentText сообщает, относится ли текстовая дата к сегодня/вчера.
// Используется markup-путем, где числового времени публикации нет.
func IsRecentText(raw string) bool {
	text := strings.TrimSpace(lowerRu.String(raw))

	keywords := []string{
		"сегодня", "только что", "минут назад",
		"час назад", "часа назад", "часов назад",
		"вчера",
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
