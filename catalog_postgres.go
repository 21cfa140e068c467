/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const pgForeignKeyViolation = "23503"

const catalogSchema = `
CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	category_id INTEGER NOT NULL REFERENCES categories (id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS paragraphs (
	id        INTEGER PRIMARY KEY,
	paragraph TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	category_id INTEGER REFERENCES categories (id) ON DELETE SET NULL,
	max_player  INTEGER NOT NULL DEFAULT 4,
	game        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'waiting',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const roomColumns = `id, name, category_id, max_player, game, status, created_at`

type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func openPostgresCatalog(ctx context.Context, dsn string) (*PostgresCatalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres catalog: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres catalog: %w", err)
	}

	s := &PostgresCatalog{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresCatalog) Close() error {
	s.pool.Close()
	return nil
}

// migrate creates the schema and seeds an empty catalog in one transaction.
func (s *PostgresCatalog) migrate(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, catalogSchema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}

	var n int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&n); err != nil {
		return err
	}

	if n == 0 {
		batch := &pgx.Batch{}
		for _, c := range seedCategories {
			batch.Queue(`INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name)
			for _, it := range c.Items {
				batch.Queue(`INSERT INTO items (id, name, category_id) VALUES ($1, $2, $3)`, it.ID, it.Name, it.CategoryID)
			}
		}
		for _, p := range seedParagraphs {
			batch.Queue(`INSERT INTO paragraphs (id, paragraph) VALUES ($1, $2)`, p.ID, p.Text)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed postgres catalog: %w", err)
		}

		log.Info().Int("categories", len(seedCategories)).Int("paragraphs", len(seedParagraphs)).Msg("seeded catalog")
	}

	return tx.Commit(ctx)
}

func scanRoom(row pgx.Row) (CatalogRoom, error) {
	var r CatalogRoom
	var status string

	err := row.Scan(&r.ID, &r.Name, &r.CategoryID, &r.MaxPlayer, &r.Game, &status, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CatalogRoom{}, ErrRoomNotFound
	}
	if err != nil {
		return CatalogRoom{}, err
	}

	r.Status = RoomStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()

	return r, nil
}

func (s *PostgresCatalog) ListRooms(ctx context.Context) ([]CatalogRoom, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []CatalogRoom{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

func (s *PostgresCatalog) GetRoom(ctx context.Context, id string) (CatalogRoom, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

func (s *PostgresCatalog) CreateRoom(ctx context.Context, n NewRoom) (CatalogRoom, error) {
	if err := n.normalize(); err != nil {
		return CatalogRoom{}, err
	}

	room, err := scanRoom(s.pool.QueryRow(ctx,
		`INSERT INTO rooms (id, name, category_id, max_player, game, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+roomColumns,
		uuid.NewString(), n.Name, n.CategoryID, n.MaxPlayer, n.Game, string(StatusWaiting),
	))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return CatalogRoom{}, ErrInvalidCategory
	}

	return room, err
}

func (s *PostgresCatalog) SetRoomStatus(ctx context.Context, id string, status RoomStatus) (CatalogRoom, error) {
	return scanRoom(s.pool.QueryRow(ctx,
		`UPDATE rooms SET status = $2 WHERE id = $1 RETURNING `+roomColumns,
		id, string(status),
	))
}

func (s *PostgresCatalog) DeleteRoom(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *PostgresCatalog) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, i.id, i.name
		FROM categories c
		LEFT JOIN items i ON i.category_id = c.id
		ORDER BY c.id, i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var (
			cid      int
			cname    string
			itemID   *int
			itemName *string
		)
		if err := rows.Scan(&cid, &cname, &itemID, &itemName); err != nil {
			return nil, err
		}

		if len(categories) == 0 || categories[len(categories)-1].ID != cid {
			categories = append(categories, Category{ID: cid, Name: cname, Items: []Item{}})
		}
		if itemID != nil {
			last := &categories[len(categories)-1]
			last.Items = append(last.Items, Item{ID: *itemID, Name: *itemName, CategoryID: cid})
		}
	}

	return categories, rows.Err()
}

func (s *PostgresCatalog) ListParagraphs(ctx context.Context) ([]Paragraph, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, paragraph FROM paragraphs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paragraphs := []Paragraph{}
	for rows.Next() {
		var p Paragraph
		if err := rows.Scan(&p.ID, &p.Text); err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, p)
	}

	return paragraphs, rows.Err()
}
