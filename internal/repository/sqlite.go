package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/rafflehouse/internal/models"
)

const timeLayout = time.RFC3339Nano

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS studios (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			owner TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS competitions (
			id TEXT PRIMARY KEY,
			studio_id TEXT NOT NULL,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			status TEXT NOT NULL,
			end_time TEXT,
			tickets_sold INTEGER NOT NULL DEFAULT 0,
			view TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (studio_id) REFERENCES studios(id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT UNIQUE NOT NULL,
			competition_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			at TEXT NOT NULL,
			FOREIGN KEY (competition_id) REFERENCES competitions(id),
			UNIQUE(competition_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_competitions_status ON competitions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_competitions_studio ON competitions(studio_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_competition ON events(competition_id, seq)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// isConstraint reports whether err is a sqlite constraint violation
func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return stderrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

// ==================== Studio Methods ====================

// CreateStudio inserts a new studio
func (r *Repository) CreateStudio(ctx context.Context, studio models.Studio) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO studios (id, name, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		studio.ID, studio.Name, studio.Owner, formatTime(studio.CreatedAt), formatTime(studio.UpdatedAt))
	if isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

// GetStudio retrieves a studio by ID
func (r *Repository) GetStudio(ctx context.Context, id string) (*models.Studio, error) {
	var s models.Studio
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner, created_at, updated_at FROM studios WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Owner, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStudios returns all studios ordered by creation
func (r *Repository) ListStudios(ctx context.Context) ([]models.Studio, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner, created_at, updated_at FROM studios ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var studios []models.Studio
	for rows.Next() {
		var s models.Studio
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.Owner, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		studios = append(studios, s)
	}
	return studios, rows.Err()
}

// UpdateStudioOwner changes a studio's owner
func (r *Repository) UpdateStudioOwner(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE studios SET owner = ?, updated_at = ? WHERE id = ?`, owner, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Competition Methods ====================

const upsertCompetition = `INSERT INTO competitions
		(id, studio_id, name, symbol, status, end_time, tickets_sold, view, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		end_time = excluded.end_time,
		tickets_sold = excluded.tickets_sold,
		view = excluded.view,
		updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveCompetition(ctx context.Context, db execer, rec models.CompetitionRecord) error {
	var endTime sql.NullString
	if rec.EndTime != nil {
		endTime = sql.NullString{String: formatTime(*rec.EndTime), Valid: true}
	}
	_, err := db.ExecContext(ctx, upsertCompetition,
		rec.ID, rec.StudioID, rec.Name, rec.Symbol, rec.Status, endTime, int64(rec.TicketsSold),
		string(rec.View), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	return err
}

// SaveCompetition inserts or updates a competition read model
func (r *Repository) SaveCompetition(ctx context.Context, rec models.CompetitionRecord) error {
	return saveCompetition(ctx, r.db, rec)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompetition(row scanner) (*models.CompetitionRecord, error) {
	var rec models.CompetitionRecord
	var endTime sql.NullString
	var sold int64
	var view, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.StudioID, &rec.Name, &rec.Symbol, &rec.Status, &endTime, &sold,
		&view, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.TicketsSold = uint64(sold)
	rec.View = []byte(view)
	var err error
	if endTime.Valid {
		t, err := parseTime(endTime.String)
		if err != nil {
			return nil, err
		}
		rec.EndTime = &t
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

const selectCompetition = `SELECT id, studio_id, name, symbol, status, end_time, tickets_sold, view, created_at, updated_at
	FROM competitions`

// GetCompetition retrieves a competition read model by ID
func (r *Repository) GetCompetition(ctx context.Context, id string) (*models.CompetitionRecord, error) {
	rec, err := scanCompetition(r.db.QueryRowContext(ctx, selectCompetition+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListCompetitions returns competitions, optionally filtered by status
func (r *Repository) ListCompetitions(ctx context.Context, status string) ([]models.CompetitionRecord, error) {
	query := selectCompetition
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.CompetitionRecord
	for rows.Next() {
		rec, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// ==================== Event Methods ====================

// RecordEvent appends ev to the journal and upserts the competition read model atomically
func (r *Repository) RecordEvent(ctx context.Context, rec models.CompetitionRecord, ev models.EventRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveCompetition(ctx, tx, rec); err != nil {
		return fmt.Errorf("save competition %s: %w", rec.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (event_id, competition_id, seq, type, payload, at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.CompetitionID, int64(ev.Seq), ev.Type, string(ev.Payload), formatTime(ev.At))
	if isConstraint(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.Type, err)
	}

	return tx.Commit()
}

// ListEvents returns journal entries for a competition with seq greater than afterSeq
func (r *Repository) ListEvents(ctx context.Context, competitionID string, afterSeq uint64) ([]models.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, competition_id, seq, type, payload, at FROM events
		WHERE competition_id = ? AND seq > ? ORDER BY seq`, competitionID, int64(afterSeq))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.EventRecord
	for rows.Next() {
		var ev models.EventRecord
		var seq int64
		var payload, at string
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.CompetitionID, &seq, &ev.Type, &payload, &at); err != nil {
			return nil, err
		}
		ev.Seq = uint64(seq)
		ev.Payload = []byte(payload)
		if ev.At, err = parseTime(at); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LastSeq returns the highest journaled seq for a competition, or 0
func (r *Repository) LastSeq(ctx context.Context, competitionID string) (uint64, error) {
	var seq sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM events WHERE competition_id = ?`, competitionID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return uint64(seq.Int64), nil
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting saves a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// GetStats returns counts across the stored data
func (r *Repository) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ByStatus: make(map[string]int)}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM studios`).Scan(&stats.Studios); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&stats.Events); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(tickets_sold), 0) FROM competitions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		var sold int64
		if err := rows.Scan(&status, &count, &sold); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.Competitions += count
		stats.TicketsSold += uint64(sold)
	}
	return stats, rows.Err()
}

// validTables contains the whitelist of tables that can be cleared
var validTables = map[string]bool{
	"events":       true,
	"competitions": true,
	"studios":      true,
	"settings":     true,
}

// ClearTable clears all data from a table
// Only allows clearing whitelisted tables to prevent SQL injection
func (r *Repository) ClearTable(ctx context.Context, table string) error {
	if !validTables[table] {
		return ErrInvalidTable
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}
