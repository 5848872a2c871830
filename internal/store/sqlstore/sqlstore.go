package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/store"
)

// Store persists the graph in Postgres or SQLite through gorm.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to driver ("postgres" or "sqlite") and creates missing tables.
func Open(driver, dsn string, baseLog *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		// modernc registers itself as "sqlite"; no cgo needed.
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// A single connection keeps in-memory databases shared.
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db, baseLog)
}

// New wraps an existing gorm handle and migrates the graph tables.
func New(db *gorm.DB, baseLog *logger.Logger) (*Store, error) {
	if err := db.AutoMigrate(&entityRow{}, &relationshipRow{}, &eventRow{}, &mountainRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate graph tables: %w", err)
	}
	return &Store{db: db, log: baseLog.With("store", "sql")}, nil
}

func (s *Store) FindEntities(ctx context.Context, q store.EntityQuery) ([]model.Entity, error) {
	if q.Empty() {
		return nil, nil
	}

	var clauses []string
	var args []interface{}
	for _, c := range []struct {
		column string
		values []string
	}{
		{"id", q.IDs},
		{"name", q.Names},
		{"ein", q.TaxIDs},
		{"ledger_source_id", q.LedgerIDs},
	} {
		if len(c.values) > 0 {
			clauses = append(clauses, c.column+" IN ?")
			args = append(args, c.values)
		}
	}

	var rows []entityRow
	err := s.db.WithContext(ctx).
		Where(strings.Join(clauses, " OR "), args...).
		Order("id").
		Limit(store.Limit(q.Limit)).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find entities: %w", err)
	}

	out := make([]model.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	row := newEntityRow(e)
	row.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Entity{}, fmt.Errorf("create entity %q: %w", e.Name, err)
	}
	return row.model(), nil
}

func (s *Store) UpdateEntity(ctx context.Context, id string, u model.EntityUpdate) (model.Entity, error) {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Type != nil {
		updates["type"] = string(*u.Type)
	}
	if u.TaxID != nil {
		updates["ein"] = optional(*u.TaxID)
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.LedgerSourceID != nil {
		updates["ledger_source_id"] = optional(*u.LedgerSourceID)
	}

	var row entityRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if err != nil {
		return model.Entity{}, wrapNotFound("update entity", err)
	}
	return row.model(), nil
}

func (s *Store) FindRelationships(ctx context.Context, q store.RelationshipQuery) ([]model.Relationship, error) {
	tx := s.db.WithContext(ctx).Model(&relationshipRow{})
	if q.FromID != "" {
		tx = tx.Where("from_id = ?", q.FromID)
	}
	if q.ToID != "" {
		tx = tx.Where("to_id = ?", q.ToID)
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", string(q.Type))
	}
	if q.LedgerID != "" {
		tx = tx.Where("ledger_source_id = ?", q.LedgerID)
	}

	var rows []relationshipRow
	if err := tx.Limit(store.Limit(q.Limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find relationships: %w", err)
	}
	out := make([]model.Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CreateRelationship(ctx context.Context, r model.Relationship) (model.Relationship, error) {
	row := newRelationshipRow(r)
	row.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Relationship{}, fmt.Errorf("create relationship: %w", err)
	}
	return row.model(), nil
}

func (s *Store) UpdateRelationship(ctx context.Context, id string, r model.Relationship) (model.Relationship, error) {
	var row relationshipRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		next := newRelationshipRow(r)
		next.ID = id
		next.CreatedAt = row.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		row = next
		return nil
	})
	if err != nil {
		return model.Relationship{}, wrapNotFound("update relationship", err)
	}
	return row.model(), nil
}

func (s *Store) FindEvents(ctx context.Context, q store.EventQuery) ([]model.TimelineEvent, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("year = ? AND title = ?", q.Year, q.Title).
		Limit(store.Limit(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	out := make([]model.TimelineEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev model.TimelineEvent) (model.TimelineEvent, error) {
	row := newEventRow(ev)
	row.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.TimelineEvent{}, fmt.Errorf("create event %q: %w", ev.Title, err)
	}
	return row.model(), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, ev model.TimelineEvent) (model.TimelineEvent, error) {
	var row eventRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		next := newEventRow(ev)
		next.ID = id
		next.CreatedAt = row.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		row = next
		return nil
	})
	if err != nil {
		return model.TimelineEvent{}, wrapNotFound("update event", err)
	}
	return row.model(), nil
}

func (s *Store) FindMountains(ctx context.Context, names []string) ([]model.Mountain, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	var rows []mountainRow
	err := s.db.WithContext(ctx).
		Where("LOWER(title) IN ? OR slug IN ?", lowered, names).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find mountains: %w", err)
	}
	out := make([]model.Mountain, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Mountain{ID: r.ID, Title: r.Title, Slug: r.Slug})
	}
	return out, nil
}

func (s *Store) EnsureMountains(ctx context.Context, titles []string) error {
	existing, err := s.FindMountains(ctx, titles)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[strings.ToLower(m.Title)] = true
	}
	for _, title := range titles {
		if have[strings.ToLower(title)] {
			continue
		}
		row := mountainRow{ID: uuid.NewString(), Title: title, Slug: model.MountainSlug(title)}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("create mountain %q: %w", title, err)
		}
		have[strings.ToLower(title)] = true
	}
	return nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&entityRow{}).Count(&c.Entities).Error; err != nil {
		return c, err
	}
	if err := db.Model(&relationshipRow{}).Count(&c.Relationships).Error; err != nil {
		return c, err
	}
	if err := db.Model(&eventRow{}).Count(&c.Events).Error; err != nil {
		return c, err
	}
	return c, nil
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func wrapNotFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ store.Store = (*Store)(nil)
