// Package postgres reads incident reports from the PostgreSQL data layer.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// loadIncidentsQuery returns every incident in id order so that the input
// order, and therefore the cluster labels, is stable between requests.
const loadIncidentsQuery = `
	SELECT
		i.id,
		i.latitude,
		i.longitude,
		c.name AS category,
		EXTRACT(HOUR FROM i.reported_time)::int AS hour
	FROM incidents i
	LEFT JOIN incident_categories c ON c.id = i.category_id
	ORDER BY i.id`

// incidentRow is the scan target of loadIncidentsQuery.
type incidentRow struct {
	ID        int64          `db:"id"`
	Latitude  float64        `db:"latitude"`
	Longitude float64        `db:"longitude"`
	Category  sql.NullString `db:"category"`
	Hour      sql.NullInt32  `db:"hour"`
}

func (r incidentRow) toDomain() domain.Incident {
	inc := domain.Incident{
		ID:        strconv.FormatInt(r.ID, 10),
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
	if r.Category.Valid && r.Category.String != "" {
		category := r.Category.String
		inc.Category = &category
	}
	if r.Hour.Valid {
		hour := int(r.Hour.Int32)
		inc.Hour = &hour
	}
	return inc
}

// Source implements pipeline.IncidentSource over sqlx.
type Source struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Source, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect incident database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewSource(db, logger), nil
}

// NewSource wraps an existing connection pool.
func NewSource(db *sqlx.DB, logger *slog.Logger) *Source {
	return &Source{db: db, logger: logger}
}

// LoadIncidents reads the full incident set.
func (s *Source) LoadIncidents(ctx context.Context) ([]domain.Incident, error) {
	start := time.Now()

	var rows []incidentRow
	if err := s.db.SelectContext(ctx, &rows, loadIncidentsQuery); err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}

	incidents := make([]domain.Incident, len(rows))
	for i, r := range rows {
		incidents[i] = r.toDomain()
	}
	s.logger.Debug("incidents loaded", "count", len(incidents), "duration", time.Since(start))
	return incidents, nil
}

// CheckReadiness pings the database.
func (s *Source) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("incident database unreachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}
