package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

// PostgresDedupRepository реализует DedupStorePort для PostgreSQL.
type PostgresDedupRepository struct {
	dbPool *pgxpool.Pool
}

// NewPostgresDedupRepository создает новый экземпляр PostgresDedupRepository.
func NewPostgresDedupRepository(dbPool *pgxpool.Pool) (*PostgresDedupRepository, error) {
	if dbPool == nil {
		return nil, fmt.Errorf("postgres dedup repository: dbPool cannot be nil")
	}
	return &PostgresDedupRepository{dbPool: dbPool}, nil
}

// Exists проверяет, встречался ли отпечаток. Сравнение идет только по
// fingerprint: source_id уже входит в его состав.
func (r *PostgresDedupRepository) Exists(ctx context.Context, id domain.Fingerprint) (bool, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresDedupRepository",
		"method":    "Exists",
	})

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM seen_listings WHERE fingerprint = $1)`

	if err := r.dbPool.QueryRow(ctx, query, string(id)).Scan(&exists); err != nil {
		logger.Error("Error checking fingerprint existence", err, nil)
		return false, fmt.Errorf("PostgresDedupRepo: error checking fingerprint: %w", err)
	}
	return exists, nil
}

// Record сохраняет отпечаток и ключевые поля объявления. Повторная вставка
// того же отпечатка молча игнорируется (ON CONFLICT DO NOTHING).
func (r *PostgresDedupRepository) Record(ctx context.Context, id domain.Fingerprint, listing domain.Listing) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresDedupRepository",
		"method":    "Record",
	})

	query := `
        INSERT INTO seen_listings
            (fingerprint, source_id, title, price_minor, location, rooms,
             area_sqm, metro_stations, metro_walk_minutes, listing_url, published_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (fingerprint) DO NOTHING
    `

	_, err := r.dbPool.Exec(ctx, query,
		string(id),
		nullIfEmpty(listing.SourceID),
		listing.Title,
		listing.PriceMinor,
		listing.Location,
		listing.Rooms,
		listing.AreaSqm,
		listing.Metro.Stations,
		listing.Metro.WalkMinutes,
		listing.ListingURL,
		listing.PublishedAt,
	)
	if err != nil {
		logger.Error("Error recording listing fingerprint", err, port.Fields{
			"fingerprint": string(id),
		})
		return fmt.Errorf("PostgresDedupRepo: error recording fingerprint: %w", err)
	}

	logger.Debug("Fingerprint recorded", port.Fields{"fingerprint": string(id)})
	return nil
}

// PurgeOlderThan удаляет записи старше указанного возраста.
func (r *PostgresDedupRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresDedupRepository",
		"method":    "PurgeOlderThan",
	})

	cutoff := time.Now().UTC().Add(-age)
	query := `DELETE FROM seen_listings WHERE created_at < $1`

	tag, err := r.dbPool.Exec(ctx, query, cutoff)
	if err != nil {
		logger.Error("Error purging old records", err, port.Fields{"cutoff": cutoff})
		return 0, fmt.Errorf("PostgresDedupRepo: error purging records older than %s: %w", age, err)
	}

	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CREATE TABLE IF NOT EXISTS seen_listings (
//     fingerprint        VARCHAR(64) PRIMARY KEY,
//     source_id          TEXT,
//     title              TEXT NOT NULL,
//     price_minor        BIGINT,
//     location           TEXT,
//     rooms              SMALLINT,
//     area_sqm           REAL,
//     metro_stations     TEXT[],
//     metro_walk_minutes SMALLINT,
//     listing_url        TEXT NOT NULL,
//     published_at       TIMESTAMPTZ,
//     created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
// );
//
// CREATE INDEX IF NOT EXISTS idx_seen_listings_created_at ON seen_listings(created_at);
