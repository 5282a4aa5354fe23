package extractor

import "testing"

const searchPageFixture = `
<html><body>
<div data-marker="item" data-item-id="4242">
  <a data-marker="item-title" href="/moskva/kvartiry/2-k_kvartira_4242">2-к квартира, 45 м², 5/9 эт.</a>
  <span data-marker="item-price">65 000 ₽ в месяц</span>
  <div data-marker="item-address">Москва, Таганская ул., 25</div>
  <div data-marker="item-specific-params">Сдам уютную квартиру рядом с метро</div>
  <img data-marker="item-photo" src="https://img.avito.st/4242.jpg">
  <div data-marker="item-date">2 часа назад</div>
  <span>метро Таганская</span>
  <span>7 мин пешком до метро</span>
</div>
<div data-marker="item" data-item-id="4343">
  <a data-marker="item-title" href="https://www.avito.ru/moskva/kvartiry/studiya_4343">Квартира-студия, 28 м²</a>
  <meta itemprop="price" content="50000">
</div>
</body></html>`

func TestItemsFromDocumentParsesCards(t *testing.T) {
	items := ItemsFromDocument(searchPageFixture)
	if len(items) != 2 {
		t.Fatalf("items = %d; want 2", len(items))
	}

	first := items[0]
	if first.ID.String() != "4242" {
		t.Errorf("ID = %s; want 4242", first.ID)
	}
	if first.Title != "2-к квартира, 45 м², 5/9 эт." {
		t.Errorf("Title = %q", first.Title)
	}
	if first.AbsoluteURL != "https://www.avito.ru/moskva/kvartiry/2-k_kvartira_4242" {
		t.Errorf("AbsoluteURL = %q; relative href must be resolved", first.AbsoluteURL)
	}
	if first.PriceText != "65 000 ₽ в месяц" {
		t.Errorf("PriceText = %q", first.PriceText)
	}
	if first.Location.Name != "Москва, Таганская ул., 25" {
		t.Errorf("Location = %q", first.Location.Name)
	}
	if len(first.Images) != 1 || first.Images[0].Catalog != "https://img.avito.st/4242.jpg" {
		t.Errorf("Images = %v", first.Images)
	}
	if first.PublishedLabel != "2 часа назад" {
		t.Errorf("PublishedLabel = %q", first.PublishedLabel)
	}
	if len(first.Geo.References) != 2 {
		t.Errorf("Geo.References = %v; metro mentions must be collected", first.Geo.References)
	}
}

func TestItemsFromDocumentPriceFromMetaTag(t *testing.T) {
	items := ItemsFromDocument(searchPageFixture)
	second := items[1]
	if second.PriceText != "50000" {
		t.Errorf("PriceText = %q; want fallback to meta itemprop", second.PriceText)
	}
	if second.AbsoluteURL != "https://www.avito.ru/moskva/kvartiry/studiya_4343" {
		t.Errorf("AbsoluteURL = %q; absolute href must pass through unchanged", second.AbsoluteURL)
	}
}

func TestItemsFromDocumentUnusableMarkup(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty document", ""},
		{"no item cards", "<html><body><div>Доступ ограничен</div></body></html>"},
	}

	for _, tt := range tests {
		if items := ItemsFromDocument(tt.html); len(items) != 0 {
			t.Errorf("%s: items = %d; want none", tt.name, len(items))
		}
	}
}
