package domain

import "errors"

// Сигнальные ошибки пайплайна. Стратегии оборачивают их через fmt.Errorf("...: %w"),
// пайплайн различает исходы через errors.Is.
var (
	// ErrBlocked - источник распознал автоматический доступ и отказал в обслуживании.
	// Единственный исход, который мутирует BlockState.
	ErrBlocked = errors.New("source blocked the request")

	// ErrEmptyPayload - ответ получен, но распознаваемых объявлений в нем нет.
	// Не блокировка: обычный проход к следующей стратегии.
	ErrEmptyPayload = errors.New("no recognizable payload in response")

	// ErrItemDropped - у элемента отсутствует заголовок или ссылка, извлечение
	// для него невозможно. Элемент отбрасывается целиком.
	ErrItemDropped = errors.New("item lacks required fields")
)
