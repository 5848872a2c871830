// Package ledger mirrors rows of an external tax-filing ledger into the graph.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrNoLedger = errors.New("ledger binding missing")

type Entity struct {
	ID    string
	Name  string
	TaxID string
	Type  string
}

type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Type       string
	Role       string
	Year       *int
	Amount     *float64
	Attributes string
}

// Source reads bounded batches of ledger rows.
type Source interface {
	Entities(ctx context.Context, limit int) ([]Entity, error)
	Edges(ctx context.Context, limit int) ([]Edge, error)
}

// SQLSource reads the entities and edges tables of a ledger database.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens a ledger database. Driver is "sqlite" or "postgres".
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	if dsn == "" {
		return nil, ErrNoLedger
	}
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return NewSQLSource(db, driver), nil
}

func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

func (s *SQLSource) placeholder() string {
	if s.driver == "postgres" {
		return "$1"
	}
	return "?"
}

func (s *SQLSource) Entities(ctx context.Context, limit int) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, ein, type FROM entities LIMIT "+s.placeholder(), limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var (
			e               Entity
			name, ein, kind sql.NullString
		)
		if err := rows.Scan(&e.ID, &name, &ein, &kind); err != nil {
			return nil, fmt.Errorf("scan ledger entity: %w", err)
		}
		e.Name, e.TaxID, e.Type = name.String, ein.String, kind.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLSource) Edges(ctx context.Context, limit int) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source_id, target_id, type, role, year, amount, attributes FROM edges LIMIT "+s.placeholder(), limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var (
			e                      Edge
			kind, role, attributes sql.NullString
			year                   sql.NullInt64
			amount                 sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &kind, &role, &year, &amount, &attributes); err != nil {
			return nil, fmt.Errorf("scan ledger edge: %w", err)
		}
		e.Type, e.Role, e.Attributes = kind.String, role.String, attributes.String
		if year.Valid {
			y := int(year.Int64)
			e.Year = &y
		}
		if amount.Valid {
			a := amount.Float64
			e.Amount = &a
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
