// Package storage persists extracted property records on behalf of callers.
// The extraction core only emits records; whether and where they land is the
// caller's policy, expressed through RecordSink.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"propextract/identity"
	"propextract/models"
)

// RecordSink receives finished property records keyed by an opaque owner id.
// The owner id is passed through from the request and never interpreted.
type RecordSink interface {
	Save(ctx context.Context, ownerID string, rec *models.PropertyRecord) error
	Close()
}

// NoOpSink discards records; used when no database is configured.
type NoOpSink struct{}

func (NoOpSink) Save(ctx context.Context, ownerID string, rec *models.PropertyRecord) error {
	return nil
}

func (NoOpSink) Close() {}

// PostgresSink upserts records keyed by address fingerprint so re-scraping a
// listing refreshes one row.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	sink := &PostgresSink{pool: pool}
	if err := sink.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS extracted_properties (
		id UUID PRIMARY KEY,
		fingerprint TEXT NOT NULL UNIQUE,
		owner_id TEXT,
		address TEXT,
		address_line1 TEXT,
		city TEXT,
		region TEXT,
		postal_code TEXT,
		price NUMERIC,
		bedrooms REAL,
		bathrooms REAL,
		square_feet REAL,
		lot_size TEXT,
		year_built INTEGER,
		description TEXT,
		images JSONB,
		mls_number TEXT,
		source TEXT,
		url TEXT,
		extracted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresSink) Save(ctx context.Context, ownerID string, rec *models.PropertyRecord) error {
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	query := `
		INSERT INTO extracted_properties (
			id, fingerprint, owner_id, address, address_line1, city, region,
			postal_code, price, bedrooms, bathrooms, square_feet, lot_size,
			year_built, description, images, mls_number, source, url, extracted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (fingerprint) DO UPDATE SET
			owner_id = COALESCE(NULLIF(EXCLUDED.owner_id, ''), extracted_properties.owner_id),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), extracted_properties.address),
			address_line1 = COALESCE(NULLIF(EXCLUDED.address_line1, ''), extracted_properties.address_line1),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), extracted_properties.city),
			region = COALESCE(NULLIF(EXCLUDED.region, ''), extracted_properties.region),
			postal_code = COALESCE(NULLIF(EXCLUDED.postal_code, ''), extracted_properties.postal_code),
			price = COALESCE(NULLIF(EXCLUDED.price, 0), extracted_properties.price),
			bedrooms = COALESCE(NULLIF(EXCLUDED.bedrooms, 0), extracted_properties.bedrooms),
			bathrooms = COALESCE(NULLIF(EXCLUDED.bathrooms, 0), extracted_properties.bathrooms),
			square_feet = COALESCE(NULLIF(EXCLUDED.square_feet, 0), extracted_properties.square_feet),
			lot_size = COALESCE(NULLIF(EXCLUDED.lot_size, ''), extracted_properties.lot_size),
			year_built = COALESCE(NULLIF(EXCLUDED.year_built, 0), extracted_properties.year_built),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), extracted_properties.description),
			images = EXCLUDED.images,
			mls_number = COALESCE(NULLIF(EXCLUDED.mls_number, ''), extracted_properties.mls_number),
			source = EXCLUDED.source,
			url = EXCLUDED.url,
			extracted_at = EXCLUDED.extracted_at,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		uuid.New(), identity.Fingerprint(rec), ownerID,
		rec.Address, rec.AddressLine1, rec.City, rec.Region, rec.PostalCode,
		rec.Price, rec.Bedrooms, rec.Bathrooms, rec.SquareFeet, rec.LotSize,
		rec.YearBuilt, rec.Description, images, rec.MLSNumber, rec.Source,
		rec.URL, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert property: %w", err)
	}
	return nil
}
