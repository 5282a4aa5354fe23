package filestorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

// SessionStoreAdapter хранит browser-сессию в JSON-файле. Запись идет через
// временный файл и rename: падение процесса между "получено" и "сохранено"
// не испортит представление на диске.
type SessionStoreAdapter struct {
	filePath string
}

// NewSessionStoreAdapter создает хранилище и каталог под него.
func NewSessionStoreAdapter(filePath string) (*SessionStoreAdapter, error) {
	if filePath == "" {
		return nil, fmt.Errorf("session store: file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("session store: failed to create directory: %w", err)
	}
	return &SessionStoreAdapter{filePath: filePath}, nil
}

// Load читает сохраненные куки. Отсутствующий или поврежденный файл - это
// пустая сессия, никогда не фатальная ошибка.
func (s *SessionStoreAdapter) Load(ctx context.Context) ([]domain.SessionCookie, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SessionStoreAdapter",
	})

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		logger.Warn("Session file unreadable, treating as empty", port.Fields{"error": err.Error()})
		return nil, nil
	}

	var cookies []domain.SessionCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		logger.Warn("Session file corrupted, treating as empty", port.Fields{"error": err.Error()})
		return nil, nil
	}
	return cookies, nil
}

// Save атомарно записывает куки на диск.
func (s *SessionStoreAdapter) Save(ctx context.Context, cookies []domain.SessionCookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("session store: failed to marshal cookies: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("session store: failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("session store: failed to replace session file: %w", err)
	}
	return nil
}

// Drop уничтожает сохраненную сессию.
func (s *SessionStoreAdapter) Drop(ctx context.Context) error {
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session store: failed to drop session: %w", err)
	}
	return nil
}
