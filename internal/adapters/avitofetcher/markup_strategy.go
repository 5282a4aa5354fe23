package avitofetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

const StrategyNameMarkup = "markup_scrape"

// MarkupStrategy - резервная стратегия: забирает публичную страницу выдачи
// и отдает сырой HTML markup-пути экстрактора.
type MarkupStrategy struct {
	adapter *AvitoFetcherAdapter
}

// NewMarkupStrategy создает стратегию поверх общего адаптера.
func NewMarkupStrategy(adapter *AvitoFetcherAdapter) *MarkupStrategy {
	return &MarkupStrategy{adapter: adapter}
}

func (s *MarkupStrategy) Name() string { return StrategyNameMarkup }

// Fetch забирает страницу выдачи целиком.
func (s *MarkupStrategy) Fetch(ctx context.Context, search domain.SearchConfig, proxy *domain.ProxyEndpoint) (*domain.RawPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "AvitoFetcherAdapter(Markup)",
	})

	if search.SearchURL == "" {
		return nil, fmt.Errorf("avito markup strategy: search URL is not configured")
	}

	collector, err := s.adapter.newRequestCollector(proxy)
	if err != nil {
		return nil, err
	}

	page := &domain.RawPage{Strategy: s.Name()}
	var transportErr error

	collector.OnRequest(func(r *colly.Request) {
		logger.Debug("Fetching search page", port.Fields{"url": r.URL.String()})
	})

	collector.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.FinalURL = r.Request.URL.String()
		page.Document = string(r.Body)
		page.Body = page.Document
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			page.StatusCode = r.StatusCode
			page.FinalURL = r.Request.URL.String()
			page.Document = string(r.Body)
			page.Body = page.Document
			logger.Warn("Search page request finished with error status", port.Fields{
				"url":    page.FinalURL,
				"status": r.StatusCode,
			})
			return
		}
		transportErr = fmt.Errorf("avito markup strategy: request failed: %w", err)
	})

	if visitErr := collector.Visit(search.SearchURL); visitErr != nil {
		return nil, fmt.Errorf("avito markup strategy: failed to visit %s: %w", search.SearchURL, visitErr)
	}
	collector.Wait()

	if transportErr != nil {
		return nil, transportErr
	}

	// Страницы с кодом ошибки возвращаются как есть: их тело нужно
	// классификатору блокировок.
	if page.StatusCode < 400 && strings.TrimSpace(page.Document) == "" {
		return nil, fmt.Errorf("avito markup strategy: %w", domain.ErrEmptyPayload)
	}

	logger.Debug("Search page fetched", port.Fields{
		"status": page.StatusCode,
		"bytes":  len(page.Document),
	})
	return page, nil
}
