package avitofetcher

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// AvitoFetcherAdapter отвечает за все HTTP-взаимодействия с Avito.
// Родительский коллектор разделяет лимиты между стратегиями; на каждый
// запрос создается одноразовый клон со своими обработчиками.
type AvitoFetcherAdapter struct {
	collector *colly.Collector
	apiURL    string
	baseURL   string
}

// Config - адреса источника.
type Config struct {
	// APIURL - внутренний data-endpoint (самый дешевый и стабильный путь).
	APIURL string
	// BaseURL - корень сайта для сборки абсолютных ссылок.
	BaseURL string
}

// NewAvitoFetcherAdapter - конструктор.
func NewAvitoFetcherAdapter(cfg Config) (*AvitoFetcherAdapter, error) {
	c := colly.NewCollector(
		colly.AllowedDomains("www.avito.ru", "avito.ru"),
		colly.AllowURLRevisit(),
	)

	// Правила наследуются всеми клонами коллектора.
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*avito.ru",
		Parallelism: 1,
		RandomDelay: 3 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("AvitoFetcherAdapter: failed to set limit rule: %w", err)
	}

	extensions.RandomUserAgent(c) // На каждый запрос подставляется User-Agent реального браузера
	extensions.Referer(c)         // Автоматическая подстановка Referer, имитируя навигацию

	return &AvitoFetcherAdapter{
		collector: c,
		apiURL:    cfg.APIURL,
		baseURL:   cfg.BaseURL,
	}, nil
}

// newRequestCollector создает одноразовый клон с браузерными заголовками и,
// при необходимости, прокси.
func (a *AvitoFetcherAdapter) newRequestCollector(proxy *domain.ProxyEndpoint) (*colly.Collector, error) {
	collector := a.collector.Clone()

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")
		r.Headers.Set("Connection", "keep-alive")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	if proxy != nil {
		if err := collector.SetProxy(proxy.URL()); err != nil {
			return nil, fmt.Errorf("AvitoFetcherAdapter: failed to set proxy %s: %w", proxy.Key(), err)
		}
	}

	return collector, nil
}
