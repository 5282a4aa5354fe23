package rabbitmq

import "time"

// ListingEventDTO - событие о прошедшем фильтры объявлении для внешних
// потребителей очереди.
type ListingEventDTO struct {
	SourceID      string     `json:"source_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	PriceMinor    *int64     `json:"price_minor,omitempty"`
	Location      string     `json:"location,omitempty"`
	Rooms         *int       `json:"rooms,omitempty"`
	AreaSqm       *float64   `json:"area_sqm,omitempty"`
	MetroStations []string   `json:"metro_stations,omitempty"`
	MetroWalkMin  *int       `json:"metro_walk_minutes,omitempty"`
	ListingURL    string     `json:"listing_url"`
	ImageURL      string     `json:"image_url,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	RecencyLabel  string     `json:"recency_label,omitempty"`
	NotifiedAt    time.Time  `json:"notified_at"`
}

// StatusEventDTO - служебное событие монитора (запуск, блокировка, итоги цикла).
type StatusEventDTO struct {
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at"`
}
