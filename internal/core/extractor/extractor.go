package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

var (
	// Цена: все группы цифр, разделители тысяч отбрасываются при склейке.
	digitRunRegexp = regexp.MustCompile(`\d+`)

	// Комнаты: числительное непосредственно перед индикатором комнатности.
	roomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)-к`),
		regexp.MustCompile(`(\d+)-комн`),
		regexp.MustCompile(`(\d+)\s*комн`),
	}

	// Площадь: число с единицей, оба локальных десятичных разделителя.
	areaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*м²`),
		regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*кв\.?\s*м`),
		regexp.MustCompile(`площадь[:\s]+(\d+(?:[.,]\d+)?)`),
	}

	// Минуты пешком до метро.
	walkMinutesRegexp = regexp.MustCompile(`(\d+)\s*мин`)
)

const studioKeyword = "студия"

// lowerRu приводит строку к нижнему регистру по правилам русского языка.
var lowerRu = cases.Lower(language.Russian)

// Extractor - чистое преобразование сырого элемента в типизированный Listing.
// Никакого внешнего состояния: газетир и базовый URL фиксируются при создании.
type Extractor struct {
	gazetteer []string
	baseURL   string
}

// New создает экстрактор. Станции газетира канонизируются (нижний регистр).
func New(gazetteer []string, baseURL string) *Extractor {
	canonical := make([]string, 0, len(gazetteer))
	for _, s := range gazetteer {
		s = strings.TrimSpace(lowerRu.String(s))
		if s != "" {
			canonical = append(canonical, s)
		}
	}
	return &Extractor{gazetteer: canonical, baseURL: baseURL}
}

// Extract превращает сырой элемент в Listing. Сбой отдельного поля деградирует
// это поле до "неизвестно"; элемент отбрасывается целиком только при
// отсутствии заголовка или ссылки.
func (e *Extractor) Extract(item domain.RawItem, now time.Time) (domain.Listing, error) {
	title := strings.TrimSpace(item.Title)
	listingURL := e.resolveURL(item)

	if title == "" || listingURL == "" {
		return domain.Listing{}, fmt.Errorf("extractor: %w", domain.ErrItemDropped)
	}

	listing := domain.Listing{
		SourceID:        item.ID.String(),
		Title:           title,
		DescriptionText: strings.TrimSpace(item.Description),
		Location:        strings.TrimSpace(item.Location.Name),
		ListingURL:      listingURL,
	}

	if len(item.Images) > 0 {
		listing.ImageURL = item.Images[0].Catalog
	}

	listing.PriceMinor = e.extractPrice(item)
	listing.Rooms = e.extractRooms(item)
	listing.AreaSqm = e.extractArea(item)
	listing.Metro = e.extractMetro(item)

	if item.SortTimeStamp > 0 {
		published := time.Unix(item.SortTimeStamp, 0)
		listing.PublishedAt = &published
		listing.RecencyLabel = RecencyLabel(published, now)
	} else if item.PublishedLabel != "" {
		listing.RecencyLabel = recencyLabelFromText(item.PublishedLabel)
	} else {
		listing.RecencyLabel = labelRecent
	}

	return listing, nil
}

// resolveURL собирает абсолютную ссылку на объявление.
func (e *Extractor) resolveURL(item domain.RawItem) string {
	if item.AbsoluteURL != "" {
		return item.AbsoluteURL
	}
	if item.URLPath != "" {
		return e.baseURL + item.URLPath
	}
	return ""
}

// extractPrice: структурированное поле имеет приоритет, иначе склейка групп
// цифр из локализованной строки ("75 000 ₽" → 75000).
func (e *Extractor) extractPrice(item domain.RawItem) *int64 {
	if item.PriceDetailing.Value > 0 {
		v := item.PriceDetailing.Value
		return &v
	}
	if item.PriceText == "" {
		return nil
	}

	runs := digitRunRegexp.FindAllString(item.PriceText, -1)
	if len(runs) == 0 {
		return nil
	}

	var joined strings.Builder
	for _, r := range runs {
		joined.WriteString(r)
	}
	// Строка из одних цифр; переполнение int64 означает мусор, а не цену.
	var price int64
	if _, err := fmt.Sscanf(joined.String(), "%d", &price); err != nil {
		return nil
	}
	return &price
}

// extractRooms: структурированное поле, иначе паттерны в заголовке.
// Ключевое слово "студия" дает 0 комнат.
func (e *Extractor) extractRooms(item domain.RawItem) *int {
	if item.Params.Rooms != nil {
		v := *item.Params.Rooms
		return &v
	}

	title := lowerRu.String(item.Title)

	for _, p := range roomPatterns {
		if m := p.FindStringSubmatch(title); m != nil {
			var rooms int
			if _, err := fmt.Sscanf(m[1], "%d", &rooms); err == nil {
				return &rooms
			}
		}
	}

	if strings.Contains(title, studioKeyword) {
		studio := 0
		return &studio
	}

	return nil
}

// extractArea: структурированное поле, иначе паттерны в заголовке+описании.
func (e *Extractor) extractArea(item domain.RawItem) *float64 {
	if item.Params.Area != nil {
		v := *item.Params.Area
		return &v
	}

	fullText := lowerRu.String(item.Title + " " + item.Description)
	for _, p := range areaPatterns {
		if m := p.FindStringSubmatch(fullText); m != nil {
			var area float64
			if _, err := fmt.Sscanf(strings.ReplaceAll(m[1], ",", "."), "%f", &area); err == nil {
				return &area
			}
		}
	}
	return nil
}

// extractMetro сканирует geo-ссылки и полный текст по газетиру станций и
// ищет время пешком до метро. При нескольких совпадениях времени берется
// минимальное.
func (e *Extractor) extractMetro(item domain.RawItem) domain.MetroInfo {
	info := domain.MetroInfo{}
	seen := make(map[string]struct{})

	scan := func(text string) {
		text = lowerRu.String(text)

		for _, m := range walkMinutesRegexp.FindAllStringSubmatch(text, -1) {
			var minutes int
			if _, err := fmt.Sscanf(m[1], "%d", &minutes); err != nil {
				continue
			}
			if info.WalkMinutes == nil || minutes < *info.WalkMinutes {
				v := minutes
				info.WalkMinutes = &v
			}
		}

		for _, station := range e.gazetteer {
			if _, dup := seen[station]; dup {
				continue
			}
			if containsWholeWord(text, station) {
				seen[station] = struct{}{}
				info.Stations = append(info.Stations, station)
			}
		}
	}

	for _, ref := range item.Geo.References {
		scan(ref)
	}
	scan(item.Title + " " + item.Description)

	return info
}

// containsWholeWord ищет подстроку с проверкой границ слова по рунам.
// Регулярка с \b здесь не годится: в Go \b - это ASCII-граница, кириллицу
// она не понимает.
func containsWholeWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start

		boundedLeft := true
		if idx > 0 {
			prev, _ := lastRune(text[:idx])
			boundedLeft = !unicode.IsLetter(prev) && !unicode.IsDigit(prev)
		}

		boundedRight := true
		if end := idx + len(word); end < len(text) {
			next := firstRune(text[end:])
			boundedRight = !unicode.IsLetter(next) && !unicode.IsDigit(next)
		}

		if boundedLeft && boundedRight {
			return true
		}
		start = idx + len(word)
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) (rune, int) {
	var r rune
	var size int
	for i, c := range s {
		r = c
		size = len(s) - i
	}
	return r, size
}
