package avitofetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

const StrategyNameBrowser = "browser_emulation"

const browserFetchTimeout = 90 * time.Second

// BrowserStrategy - последняя линия деградации: полноценная браузерная
// сессия для JavaScript-рендеринга и обхода анти-автоматизации. Перед
// навигацией проигрываются сохраненные куки; после каждой попытки, удачной
// или нет, сессия сохраняется - состояние переживает перезапуск процесса.
type BrowserStrategy struct {
	sessions  port.SessionStorePort
	userAgent string
}

// NewBrowserStrategy создает стратегию с хранилищем сессий.
func NewBrowserStrategy(sessions port.SessionStorePort, userAgent string) *BrowserStrategy {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return &BrowserStrategy{sessions: sessions, userAgent: userAgent}
}

func (s *BrowserStrategy) Name() string { return StrategyNameBrowser }

// Fetch открывает страницу выдачи в headless-браузере и возвращает
// отрендеренный HTML.
func (s *BrowserStrategy) Fetch(ctx context.Context, search domain.SearchConfig, proxy *domain.ProxyEndpoint) (*domain.RawPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "AvitoFetcherAdapter(Browser)",
	})

	if search.SearchURL == "" {
		return nil, fmt.Errorf("avito browser strategy: search URL is not configured")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(s.userAgent),
	)
	if proxy != nil {
		opts = append(opts, chromedp.ProxyServer(proxy.URL()))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Глушим шум chromedp в stdout
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancelTimeout := context.WithTimeout(browserCtx, browserFetchTimeout)
	defer cancelTimeout()

	saved, err := s.sessions.Load(ctx)
	if err != nil {
		// Поврежденная сессия трактуется как пустая, не как отказ.
		logger.Warn("Failed to load persisted session, starting clean", port.Fields{
			"error": err.Error(),
		})
		saved = nil
	}

	var html, finalURL string

	runErr := chromedp.Run(runCtx,
		s.replayCookies(saved),
		chromedp.Navigate(search.SearchURL),
		chromedp.Sleep(5*time.Second),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
		s.captureCookies(&saved),
	)

	// Сессию сохраняем независимо от исхода попытки.
	if saveErr := s.sessions.Save(ctx, saved); saveErr != nil {
		logger.Warn("Failed to persist browser session", port.Fields{"error": saveErr.Error()})
	}

	if runErr != nil {
		return nil, fmt.Errorf("avito browser strategy: browser run failed: %w", runErr)
	}

	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("avito browser strategy: %w", domain.ErrEmptyPayload)
	}

	logger.Debug("Browser page rendered", port.Fields{
		"final_url": finalURL,
		"bytes":     len(html),
	})

	return &domain.RawPage{
		Strategy:   s.Name(),
		FinalURL:   finalURL,
		StatusCode: 200,
		Document:   html,
		Body:       html,
	}, nil
}

// replayCookies восстанавливает сохраненные куки в браузерной сессии.
func (s *BrowserStrategy) replayCookies(cookies []domain.SessionCookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path)
			if c.Expires > 0 {
				param = param.WithExpires(&exp)
			}
			if err := param.Do(ctx); err != nil {
				// Одна испорченная кука не должна срывать всю попытку.
				continue
			}
		}
		return nil
	})
}

// captureCookies снимает текущие куки сессии для последующего сохранения.
func (s *BrowserStrategy) captureCookies(out *[]domain.SessionCookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		collected := make([]domain.SessionCookie, 0, len(cookies))
		for _, c := range cookies {
			collected = append(collected, domain.SessionCookie{
				Name:    c.Name,
				Value:   c.Value,
				Domain:  c.Domain,
				Path:    c.Path,
				Expires: c.Expires,
			})
		}
		*out = collected
		return nil
	})
}
