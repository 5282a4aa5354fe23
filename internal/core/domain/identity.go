package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Fingerprint - стабильный отпечаток объявления для дедупликации. Два
// объявления с одинаковым отпечатком считаются одним и тем же реальным
// постингом.
type Fingerprint string

// buildIdentityPayload собирает стабильную строку из ключевых полей.
// Отсутствующие опциональные поля кодируются как "null", чтобы "цена
// неизвестна" и "цена 0" давали разные отпечатки.
func buildIdentityPayload(l Listing) string {
	parts := []string{
		strings.TrimSpace(l.SourceID),
		strings.ToLower(strings.TrimSpace(l.Title)),
	}

	if l.PriceMinor != nil {
		parts = append(parts, fmt.Sprintf("%d", *l.PriceMinor))
	} else {
		parts = append(parts, "null")
	}

	parts = append(parts, strings.ToLower(strings.TrimSpace(l.Location)))

	return strings.Join(parts, "|")
}

// IdentityOf вычисляет SHA256-отпечаток объявления.
func IdentityOf(l Listing) Fingerprint {
	h := sha256.Sum256([]byte(buildIdentityPayload(l)))
	return Fingerprint(fmt.Sprintf("%x", h))
}
