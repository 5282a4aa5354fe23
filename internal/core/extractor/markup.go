package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

// ItemsFromDocument - markup-путь экстрактора: разбирает HTML страницы выдачи
// в сырые элементы. Селекторы соответствуют data-marker разметке Avito.
// Непригодная разметка дает пустой срез, не ошибку: решение об откате к
// следующей стратегии принимает пайплайн.
func ItemsFromDocument(html string) []domain.RawItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []domain.RawItem

	doc.Find(`div[data-marker="item"]`).Each(func(_ int, card *goquery.Selection) {
		item := domain.RawItem{}

		titleLink := card.Find(`a[data-marker="item-title"]`).First()
		item.Title = strings.TrimSpace(titleLink.Text())
		if href, ok := titleLink.Attr("href"); ok {
			item.AbsoluteURL = resolveHref(href)
		}

		if id, ok := card.Attr("data-item-id"); ok {
			item.ID = json.Number(id)
		}

		// Цена: сначала видимый текст, затем метатег.
		if price := strings.TrimSpace(card.Find(`span[data-marker="item-price"]`).First().Text()); price != "" {
			item.PriceText = price
		} else if content, ok := card.Find(`meta[itemprop="price"]`).First().Attr("content"); ok {
			item.PriceText = content
		}

		item.Location.Name = strings.TrimSpace(card.Find(`div[data-marker="item-address"]`).First().Text())

		desc := strings.TrimSpace(card.Find(`div[data-marker="item-specific-params"]`).First().Text())
		if desc == "" {
			desc = strings.TrimSpace(card.Find("p.item-description-text").First().Text())
		}
		item.Description = desc

		img := card.Find(`img[data-marker="item-photo"]`).First()
		if img.Length() == 0 {
			img = card.Find("img").First()
		}
		if src, ok := img.Attr("src"); ok {
			item.Images = append(item.Images, domain.ImageRef{Catalog: src})
		}

		item.PublishedLabel = strings.TrimSpace(card.Find(`div[data-marker="item-date"]`).First().Text())

		// Упоминания метро попадают в geo-ссылки, как и в API-пути.
		card.Find("span").Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			lower := lowerRu.String(text)
			if strings.Contains(lower, "мин") || strings.Contains(lower, "метро") {
				item.Geo.References = append(item.Geo.References, text)
			}
		})

		items = append(items, item)
	})

	return items
}

func resolveHref(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return "https://www.avito.ru" + href
	}
	return href
}
