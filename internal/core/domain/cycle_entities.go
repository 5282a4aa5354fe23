package domain

import (
	"encoding/json"
	"time"
)

// CycleOutcome - итог одного цикла сбора.
type CycleOutcome string

const (
	OutcomeSuccess         CycleOutcome = "success"
	OutcomeSkippedCooldown CycleOutcome = "skipped_due_to_cooldown"
	OutcomeExhausted       CycleOutcome = "exhausted_all_strategies"
)

// CycleResult возвращается пайплайном вызывающему коду. Дедупликация и
// уведомления в пайплайн не входят - это забота вызывающего.
type CycleResult struct {
	Outcome  CycleOutcome
	Listings []Listing

	// Strategy - имя стратегии, которая в итоге отдала данные (при успехе).
	Strategy string

	// FinishedAt - момент завершения цикла.
	FinishedAt time.Time
}

// RawItem - один сырой элемент из структурированного API-ответа либо
// собранный из HTML-карточки. Поля с json-тегами соответствуют внутреннему
// API Avito, остальные заполняет markup-путь.
type RawItem struct {
	ID             json.Number    `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PriceDetailing PriceDetailing `json:"priceDetailing"`
	Location       LocationRef    `json:"location"`
	Geo            GeoRef         `json:"geo"`
	URLPath        string         `json:"urlPath"`
	Images         []ImageRef     `json:"images"`
	Params         ItemParams     `json:"params"`
	SortTimeStamp  int64          `json:"sortTimeStamp"`

	// PriceText - локализованная строка цены ("75 000 ₽"), когда числового
	// поля нет (markup-путь).
	PriceText string `json:"-"`

	// AbsoluteURL - готовая ссылка, если ее собрал markup-путь.
	AbsoluteURL string `json:"-"`

	// PublishedLabel - сырой текст даты с HTML-карточки ("2 часа назад").
	PublishedLabel string `json:"-"`
}

type PriceDetailing struct {
	Value int64 `json:"value"`
}

type LocationRef struct {
	Name string `json:"name"`
}

type GeoRef struct {
	References []string `json:"references"`
}

type ImageRef struct {
	Catalog string `json:"636x476"`
}

// ItemParams - структурированные параметры объявления, когда API их отдал.
type ItemParams struct {
	Rooms *int     `json:"rooms"`
	Area  *float64 `json:"area"`
}

// RawPage - результат одной fetch-попытки, по которой был получен HTTP-ответ
// (включая ответы с кодом ошибки: их еще предстоит классифицировать).
type RawPage struct {
	Strategy   string
	FinalURL   string
	StatusCode int

	// Items - структурированные элементы (путь StructuredAPI).
	Items []RawItem

	// Document - сырой HTML страницы поиска (markup/browser пути).
	Document string

	// Body - сырой текст ответа для классификатора блокировок. Для
	// markup/browser путей совпадает с Document.
	Body string
}
