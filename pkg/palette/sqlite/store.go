package sqlite

import (
	"codeberg.org/miketth/keylamp/pkg/palette"
	"codeberg.org/miketth/keylamp/pkg/palette/sqlite/migrations"
	"context"
	"database/sql"
	"fmt"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store keeps the layout to color table in a sqlite database.
type Store struct {
	db     *sql.DB
	schema uint
}

func NewStore(filename string, log *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	schema, err := migrations.Migrate(db, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, schema: schema}, nil
}

func (s *Store) SchemaVersion() uint {
	return s.schema
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context) ([]palette.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "select layout, color from palette order by layout")
	if err != nil {
		return nil, fmt.Errorf("sqlite select: %w", err)
	}
	defer rows.Close()

	var entries []palette.Entry
	for rows.Next() {
		var layout, code string
		if err := rows.Scan(&layout, &code); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}

		color, err := palette.ParseColor(code)
		if err != nil {
			return nil, fmt.Errorf("layout %q: %w", layout, err)
		}

		entries = append(entries, palette.Entry{Layout: layout, Color: color})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}

	return entries, nil
}

// Load reads the whole table into memory, so lookups on the event path never
// touch the database.
func (s *Store) Load(ctx context.Context) (*palette.Memory, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	colors := make(map[string]palette.Color, len(entries))
	for _, e := range entries {
		colors[e.Layout] = e.Color
	}

	return palette.NewMemory(colors), nil
}

func (s *Store) Set(ctx context.Context, layout string, color palette.Color) error {
	if !color.Valid() {
		return palette.ErrUnknownColor
	}

	_, err := s.db.ExecContext(ctx,
		"insert into palette (layout, color) values (?, ?) on conflict (layout) do update set color = excluded.color",
		layout, string(rune(color)),
	)
	if err != nil {
		return fmt.Errorf("sqlite upsert: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, layout string) error {
	if _, err := s.db.ExecContext(ctx, "delete from palette where layout = ?", layout); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}
