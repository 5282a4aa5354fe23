package constants

// Обменник событий монитора
const (
	ListingEventsExchange = "avito.listings.events"
)

// Ключи маршрутизации
const (
	RoutingKeyListingFound  = "listing.found"
	RoutingKeyMonitorStatus = "monitor.status"
)
