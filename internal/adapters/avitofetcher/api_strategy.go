package avitofetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gocolly/colly/v2"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

const StrategyNameAPI = "structured_api"

// apiListingsResponse - конверт ответа внутреннего API.
type apiListingsResponse struct {
	Items []domain.RawItem `json:"items"`
}

// APIStrategy - предпочтительная стратегия: один запрос к внутреннему
// data-endpoint, элементы приходят уже структурированными.
type APIStrategy struct {
	adapter *AvitoFetcherAdapter
}

// NewAPIStrategy создает стратегию поверх общего адаптера.
func NewAPIStrategy(adapter *AvitoFetcherAdapter) *APIStrategy {
	return &APIStrategy{adapter: adapter}
}

func (s *APIStrategy) Name() string { return StrategyNameAPI }

// Fetch выполняет один запрос к API. Ответы с кодом ошибки возвращаются как
// RawPage - классификация блокировок остается за пайплайном.
func (s *APIStrategy) Fetch(ctx context.Context, search domain.SearchConfig, proxy *domain.ProxyEndpoint) (*domain.RawPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "AvitoFetcherAdapter(API)",
	})

	targetURL, err := s.buildURL(search)
	if err != nil {
		return nil, fmt.Errorf("avito api strategy: failed to build URL: %w", err)
	}

	collector, err := s.adapter.newRequestCollector(proxy)
	if err != nil {
		return nil, err
	}

	page := &domain.RawPage{Strategy: s.Name()}
	var transportErr error

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
		logger.Debug("Making API request", port.Fields{"url": r.URL.String()})
	})

	collector.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.FinalURL = r.Request.URL.String()
		page.Body = string(r.Body)

		var data apiListingsResponse
		if jsonErr := json.Unmarshal(r.Body, &data); jsonErr != nil {
			// Нераспознаваемый payload - не ошибка транспорта: пайплайн
			// увидит пустой результат и откатится к разбору выдачи.
			logger.Warn("API returned unparsable payload", port.Fields{
				"url":   page.FinalURL,
				"error": jsonErr.Error(),
			})
			return
		}
		page.Items = data.Items
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			// Ответ получен: статус и тело уходят классификатору блокировок.
			page.StatusCode = r.StatusCode
			page.FinalURL = r.Request.URL.String()
			page.Body = string(r.Body)
			logger.Warn("API request finished with error status", port.Fields{
				"url":    page.FinalURL,
				"status": r.StatusCode,
			})
			return
		}
		transportErr = fmt.Errorf("avito api strategy: request failed: %w", err)
	})

	if visitErr := collector.Visit(targetURL); visitErr != nil {
		return nil, fmt.Errorf("avito api strategy: failed to visit %s: %w", targetURL, visitErr)
	}
	collector.Wait()

	if transportErr != nil {
		return nil, transportErr
	}

	logger.Debug("API request finished", port.Fields{
		"status": page.StatusCode,
		"items":  len(page.Items),
	})
	return page, nil
}

// buildURL собирает запрос к внутреннему API из поисковой конфигурации.
func (s *APIStrategy) buildURL(search domain.SearchConfig) (string, error) {
	u, err := url.Parse(s.adapter.apiURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if search.LocationID != "" {
		q.Set("locationId", search.LocationID)
	}
	if search.CategoryID != "" {
		q.Set("categoryId", search.CategoryID)
	}
	if search.RentParam != "" {
		q.Set("params[549]", search.RentParam)
	}
	if search.PriceMax > 0 {
		q.Set("priceMax", strconv.FormatInt(search.PriceMax, 10))
	}
	if search.AreaMin > 0 {
		q.Set("areaMin", strconv.FormatFloat(search.AreaMin, 'f', -1, 64))
	}
	if search.Limit > 0 {
		q.Set("limit", strconv.Itoa(search.Limit))
	}
	if search.SortBy != "" {
		q.Set("sort", search.SortBy)
	}
	q.Set("page", "1")

	u.RawQuery = q.Encode()
	return u.String(), nil
}
