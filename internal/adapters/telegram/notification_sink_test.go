package telegram

import (
	"strings"
	"testing"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

func newTestSink() *TelegramNotificationSink {
	return &TelegramNotificationSink{
		chatID: 1,
		criteria: domain.FilterCriteria{
			PreferredRepair: []string{"евроремонт"},
		},
	}
}

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func cardListing() domain.Listing {
	return domain.Listing{
		SourceID:        "42",
		Title:           "2-к квартира, 45 м²",
		DescriptionText: "Уютная квартира, евроремонт",
		PriceMinor:      int64Ptr(65000),
		AreaSqm:         floatPtr(45),
		Location:        "Москва, Таганская ул., 25",
		Metro: domain.MetroInfo{
			Stations:    []string{"таганская"},
			WalkMinutes: intPtr(7),
		},
		ListingURL:   "https://www.avito.ru/item/42",
		RecencyLabel: "📅 Только что",
	}
}

func TestFormatListingMessageFullCard(t *testing.T) {
	text := newTestSink().formatListingMessage(cardListing())

	wantParts := []string{
		"📅 Только что",
		"🏠 **2-к квартира, 45 м²**",
		"💰 **Цена:** 65 000 ₽/мес",
		"📏 **Площадь:** 45.0 м²",
		"🚇 **Метро:** таганская (7 мин)",
		"📍 **Адрес:** Москва, Таганская ул., 25",
		"✨ **Евроремонт**",
		"(https://www.avito.ru/item/42)",
		"⚡ *Быстрее пишите продавцу!*",
	}
	for _, part := range wantParts {
		if !strings.Contains(text, part) {
			t.Errorf("card is missing %q:\n%s", part, text)
		}
	}
}

func TestFormatListingMessageUnknownFields(t *testing.T) {
	listing := cardListing()
	listing.PriceMinor = nil
	listing.AreaSqm = nil
	listing.Location = ""
	listing.Metro = domain.MetroInfo{}
	listing.RecencyLabel = ""

	text := newTestSink().formatListingMessage(listing)

	wantParts := []string{
		"📅 Недавно",
		"💰 **Цена:** не указана",
		"📏 **Площадь:** не указана",
		"🚇 **Метро:** Не указано",
		"📍 **Адрес:** не указан",
	}
	for _, part := range wantParts {
		if !strings.Contains(text, part) {
			t.Errorf("card is missing %q:\n%s", part, text)
		}
	}
}

func TestFormatMetro(t *testing.T) {
	tests := []struct {
		name string
		info domain.MetroInfo
		want string
	}{
		{"no stations", domain.MetroInfo{}, "Не указано"},
		{
			"walk minutes without stations",
			domain.MetroInfo{WalkMinutes: intPtr(5)},
			"Не указано",
		},
		{
			"single station with minutes",
			domain.MetroInfo{Stations: []string{"таганская"}, WalkMinutes: intPtr(7)},
			"таганская (7 мин)",
		},
		{
			"three stations shown as is",
			domain.MetroInfo{Stations: []string{"таганская", "курская", "павелецкая"}},
			"таганская, курская, павелецкая",
		},
		{
			"overflow collapses into a counter",
			domain.MetroInfo{Stations: []string{"таганская", "курская", "павелецкая", "киевская", "октябрьская"}},
			"таганская, курская, павелецкая и еще 2",
		},
	}

	for _, tt := range tests {
		if got := formatMetro(tt.info); got != tt.want {
			t.Errorf("%s: formatMetro() = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{500, "500"},
		{45000, "45 000"},
		{120000, "120 000"},
		{1234567, "1 234 567"},
	}

	for _, tt := range tests {
		if got := groupDigits(tt.n); got != tt.want {
			t.Errorf("groupDigits(%d) = %q; want %q", tt.n, got, tt.want)
		}
	}
}

func TestQualityEmoji(t *testing.T) {
	sink := newTestSink()

	tests := []struct {
		name   string
		mutate func(*domain.Listing)
		want   string
	}{
		// Евроремонт (+2), кольцевая станция (+2), 7 мин (+1), 65000 (0).
		{"top score", func(l *domain.Listing) {}, "🔥🔥🔥"},
		{
			"mid score",
			func(l *domain.Listing) {
				l.DescriptionText = "Просто квартира"
				l.Metro.WalkMinutes = intPtr(20)
			},
			"⭐⭐",
		},
		{
			"base score",
			func(l *domain.Listing) {
				l.DescriptionText = "Просто квартира"
				l.Metro = domain.MetroInfo{}
			},
			"🏠",
		},
	}

	for _, tt := range tests {
		listing := cardListing()
		tt.mutate(&listing)
		if got := sink.qualityEmoji(listing); got != tt.want {
			t.Errorf("%s: qualityEmoji() = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткий текст", 100); got != "короткий текст" {
		t.Errorf("short text must pass through unchanged, got %q", got)
	}

	long := strings.Repeat("я", 50)
	got := truncate(long, 20)
	if runes := []rune(got); len(runes) != 20 {
		t.Errorf("truncated length = %d runes; want 20", len(runes))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated text must end with ellipsis, got %q", got)
	}
}
