package recovery

import "testing"

func newTestDetector() *Detector {
	return NewDetector(
		[]string{"Доступ ограничен", "captcha"},
		[]string{"/blocked", "firewall"},
	)
}

func TestDetectorBlockingStatuses(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		status int
		want   bool
	}{
		{403, true},
		{429, true},
		{200, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		if got := d.IsBlocked(tt.status, "https://www.avito.ru/items", ""); got != tt.want {
			t.Errorf("IsBlocked(status=%d) = %t; want %t", tt.status, got, tt.want)
		}
	}
}

func TestDetectorChallengePath(t *testing.T) {
	d := newTestDetector()

	if !d.IsBlocked(200, "https://www.avito.ru/blocked?from=search", "") {
		t.Error("challenge path in final URL must classify as blocked")
	}
	if d.IsBlocked(200, "https://www.avito.ru/moskva/kvartiry", "") {
		t.Error("ordinary URL must not classify as blocked")
	}
}

func TestDetectorBodyMarkers(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		body string
		want bool
	}{
		{"<html>ДОСТУП ОГРАНИЧЕН</html>", true},
		{"<html>введите captcha для продолжения</html>", true},
		{"<html>обычная выдача объявлений</html>", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := d.IsBlocked(200, "https://www.avito.ru/items", tt.body); got != tt.want {
			t.Errorf("IsBlocked(body=%q) = %t; want %t", tt.body, got, tt.want)
		}
	}
}

func TestDetectorEmptyBodyIsNotBlocking(t *testing.T) {
	// Пустая выдача - это пустая выдача, не блокировка.
	d := newTestDetector()
	if d.IsBlocked(200, "https://www.avito.ru/items", "") {
		t.Error("empty body with OK status must never classify as blocked")
	}
}
