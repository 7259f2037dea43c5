// Package repository is the local SQLite outbox that makes invalidation
// broadcasts survive a broker outage or a restart.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

type RepoInterface interface {
	AddEvent(ctx context.Context, aggregateID, eventType string, payload []byte) (int64, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

var ErrEventNotFound = errors.New("outbox event not found")

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) AddEvent(ctx context.Context, aggregateID, eventType string, payload []byte) (int64, error) {
	if !json.Valid(payload) {
		return 0, fmt.Errorf("outbox payload for %s is not valid JSON", aggregateID)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		aggregateID, eventType, string(payload), r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to insert outbox event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox event id: %w", err)
	}
	return id, nil
}

// GetUnprocessedEvents returns the oldest events not yet published.
func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e         OutboxEvent
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`,
		r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark outbox event %d: %w", id, ErrEventNotFound)
	}
	return nil
}

// DeleteProcessedBefore purges published events older than before.
func (r *Repository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < ?`,
		before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox events: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
