package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

const (
	captionLimit = 1024
	messageLimit = 4096
)

// Кольцевая линия: попадание станции сюда поднимает оценку объявления.
var ringStations = map[string]struct{}{
	"киевская": {}, "парк культуры": {}, "октябрьская": {}, "добрынинская": {},
	"павелецкая": {}, "таганская": {}, "курская": {}, "комсомольская": {},
	"проспект мира": {}, "новослободская": {}, "белорусская": {}, "краснопресненская": {},
}

// TelegramNotificationSink доставляет уведомления в Telegram-чат.
type TelegramNotificationSink struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	criteria domain.FilterCriteria
}

// NewTelegramNotificationSink создает новый экземпляр TelegramNotificationSink.
func NewTelegramNotificationSink(token string, chatID int64, criteria domain.FilterCriteria) (*TelegramNotificationSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram sink: bot token cannot be empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram sink: chat ID cannot be zero")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram sink: failed to create bot API: %w", err)
	}

	return &TelegramNotificationSink{bot: bot, chatID: chatID, criteria: criteria}, nil
}

// NotifyListing отправляет карточку объявления. Если есть фото, оно уходит с
// подписью, иначе обычное текстовое сообщение.
func (s *TelegramNotificationSink) NotifyListing(ctx context.Context, listing domain.Listing) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TelegramNotificationSink",
		"source_id": listing.SourceID,
	})

	text := s.formatListingMessage(listing)

	var err error
	if listing.ImageURL != "" {
		photo := tgbotapi.NewPhoto(s.chatID, tgbotapi.FileURL(listing.ImageURL))
		photo.Caption = truncate(text, captionLimit)
		photo.ParseMode = tgbotapi.ModeMarkdown
		_, err = s.bot.Send(photo)
	} else {
		msg := tgbotapi.NewMessage(s.chatID, truncate(text, messageLimit))
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err = s.bot.Send(msg)
	}
	if err != nil {
		return fmt.Errorf("telegram sink: failed to send listing notification: %w", err)
	}

	logger.Info("Listing notification sent", nil)
	return nil
}

// NotifyStatus отправляет служебное сообщение о состоянии монитора.
func (s *TelegramNotificationSink) NotifyStatus(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(s.chatID, truncate(text, messageLimit))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sink: failed to send status message: %w", err)
	}
	return nil
}

// formatListingMessage собирает карточку объявления в формате бота.
func (s *TelegramNotificationSink) formatListingMessage(l domain.Listing) string {
	var b strings.Builder

	recency := l.RecencyLabel
	if recency == "" {
		recency = "📅 Недавно"
	}

	fmt.Fprintf(&b, "%s **НОВАЯ КВАРТИРА НАЙДЕНА!**\n\n", s.qualityEmoji(l))
	fmt.Fprintf(&b, "%s\n\n", recency)
	fmt.Fprintf(&b, "🏠 **%s**\n\n", l.Title)
	fmt.Fprintf(&b, "💰 **Цена:** %s\n", formatPrice(l.PriceMinor))
	fmt.Fprintf(&b, "📏 **Площадь:** %s\n", formatArea(l.AreaSqm))
	fmt.Fprintf(&b, "🚇 **Метро:** %s\n", formatMetro(l.Metro))
	fmt.Fprintf(&b, "📍 **Адрес:** %s\n\n", orUnknown(l.Location))
	fmt.Fprintf(&b, "%s\n\n", repairQualityLine(l.Title, l.DescriptionText))

	if l.DescriptionText != "" {
		fmt.Fprintf(&b, "📝 **Описание:**\n%s\n\n", truncate(l.DescriptionText, 300))
	}

	fmt.Fprintf(&b, "🔗 [**ПОСМОТРЕТЬ ОБЪЯВЛЕНИЕ**](%s)\n\n", l.ListingURL)
	b.WriteString("⚡ *Быстрее пишите продавцу!*")

	return b.String()
}

// qualityEmoji оценивает привлекательность объявления по простым эвристикам:
// желанный ремонт, кольцевая станция, близость метро и цена ниже порога.
func (s *TelegramNotificationSink) qualityEmoji(l domain.Listing) string {
	score := 0
	text := strings.ToLower(l.Title + " " + l.DescriptionText)

	for _, repair := range s.criteria.PreferredRepair {
		if strings.Contains(text, repair) {
			score += 2
			break
		}
	}
	for _, station := range l.Metro.Stations {
		if _, ok := ringStations[strings.ToLower(station)]; ok {
			score += 2
			break
		}
	}
	if l.Metro.WalkMinutes != nil && *l.Metro.WalkMinutes <= 10 {
		score++
	}
	if l.PriceMinor != nil && *l.PriceMinor < 60000 {
		score++
	}

	switch {
	case score >= 4:
		return "🔥🔥🔥"
	case score >= 2:
		return "⭐⭐"
	default:
		return "🏠"
	}
}

// repairQualityLine классифицирует состояние ремонта по тексту объявления.
func repairQualityLine(title, description string) string {
	text := strings.ToLower(title + " " + description)

	switch {
	case containsAny(text, "евроремонт", "дизайнерский"):
		return "✨ **Евроремонт** - отличное состояние!"
	case containsAny(text, "хороший ремонт", "после ремонта"):
		return "🔨 **Хороший ремонт** - в порядке"
	case containsAny(text, "косметический", "требует ремонта"):
		return "🚧 **Требует ремонта** - но цена привлекательная"
	default:
		return "🏗️ **Ремонт не указан** - уточните у владельца"
	}
}

func formatMetro(m domain.MetroInfo) string {
	if len(m.Stations) == 0 {
		return "Не указано"
	}

	shown := m.Stations
	extra := 0
	if len(shown) > 3 {
		extra = len(shown) - 3
		shown = shown[:3]
	}

	text := strings.Join(shown, ", ")
	if extra > 0 {
		text += fmt.Sprintf(" и еще %d", extra)
	}
	if m.WalkMinutes != nil {
		text += fmt.Sprintf(" (%d мин)", *m.WalkMinutes)
	}
	return text
}

func formatPrice(priceMinor *int64) string {
	if priceMinor == nil {
		return "не указана"
	}
	return fmt.Sprintf("%s ₽/мес", groupDigits(*priceMinor))
}

func formatArea(area *float64) string {
	if area == nil {
		return "не указана"
	}
	return fmt.Sprintf("%.1f м²", *area)
}

func orUnknown(s string) string {
	if s == "" {
		return "не указан"
	}
	return s
}

// groupDigits разбивает число на разряды: 45000 -> "45 000".
func groupDigits(n int64) string {
	raw := fmt.Sprintf("%d", n)
	if len(raw) <= 3 {
		return raw
	}

	var b strings.Builder
	lead := len(raw) % 3
	if lead > 0 {
		b.WriteString(raw[:lead])
	}
	for i := lead; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(raw[i : i+3])
	}
	return b.String()
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// truncate обрезает строку по рунам, не разрывая UTF-8 последовательность.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
