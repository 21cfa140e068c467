/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	prefixRoom      = "room/"
	prefixCategory  = "category/"
	prefixParagraph = "paragraph/"
)

// PebbleCatalog keeps the catalog as JSON values in an embedded pebble
// store, one key per room, category and paragraph.
type PebbleCatalog struct {
	mu sync.Mutex
	db *pebble.DB

	// state guards db against use after Close.
	state  sync.RWMutex
	closed bool
}

// openPebbleCatalog opens (and on first use seeds) the store at dir. A nil
// fs means the real filesystem.
func openPebbleCatalog(dir string, fs vfs.FS) (*PebbleCatalog, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}

	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble catalog: %w", err)
	}

	s := &PebbleCatalog{db: db}
	if err := s.seed(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *PebbleCatalog) Close() error {
	s.state.Lock()
	defer s.state.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// acquire holds the store open until release is called.
func (s *PebbleCatalog) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.RLock()
	if s.closed {
		s.state.RUnlock()
		return nil, ErrCatalogClosed
	}

	return s.state.RUnlock, nil
}

func categoryKey(id int) []byte  { return fmt.Appendf(nil, "%s%08d", prefixCategory, id) }
func paragraphKey(id int) []byte { return fmt.Appendf(nil, "%s%08d", prefixParagraph, id) }
func roomKey(id string) []byte   { return []byte(prefixRoom + id) }

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

func (s *PebbleCatalog) seed() error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixCategory),
		UpperBound: upperBound(prefixCategory),
	})
	if err != nil {
		return err
	}
	seeded := iter.First()
	if err := iter.Close(); err != nil {
		return err
	}
	if seeded {
		return nil
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, c := range seedCategories {
		v, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := b.Set(categoryKey(c.ID), v, nil); err != nil {
			return err
		}
	}
	for _, p := range seedParagraphs {
		v, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := b.Set(paragraphKey(p.ID), v, nil); err != nil {
			return err
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("seed pebble catalog: %w", err)
	}

	log.Info().Int("categories", len(seedCategories)).Int("paragraphs", len(seedParagraphs)).Msg("seeded catalog")

	return nil
}

func scan[T any](db *pebble.DB, prefix string) ([]T, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []T{}
	for ok := iter.First(); ok; ok = iter.Next() {
		var v T
		if err := json.Unmarshal(iter.Value(), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		out = append(out, v)
	}

	return out, iter.Error()
}

func (s *PebbleCatalog) ListRooms(ctx context.Context) ([]CatalogRoom, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rooms, err := scan[CatalogRoom](s.db, prefixRoom)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(rooms, func(a, b CatalogRoom) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return rooms, nil
}

func (s *PebbleCatalog) GetRoom(ctx context.Context, id string) (CatalogRoom, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return CatalogRoom{}, err
	}
	defer release()

	return s.getRoom(id)
}

func (s *PebbleCatalog) getRoom(id string) (CatalogRoom, error) {
	data, closer, err := s.db.Get(roomKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return CatalogRoom{}, ErrRoomNotFound
		}
		return CatalogRoom{}, err
	}
	defer closer.Close()

	var room CatalogRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return CatalogRoom{}, fmt.Errorf("decode room %s: %w", id, err)
	}

	return room, nil
}

func (s *PebbleCatalog) putRoom(room CatalogRoom) error {
	v, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.db.Set(roomKey(room.ID), v, pebble.Sync)
}

func (s *PebbleCatalog) CreateRoom(ctx context.Context, n NewRoom) (CatalogRoom, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return CatalogRoom{}, err
	}
	defer release()
	if err := n.normalize(); err != nil {
		return CatalogRoom{}, err
	}

	if n.CategoryID != nil {
		_, closer, err := s.db.Get(categoryKey(*n.CategoryID))
		if errors.Is(err, pebble.ErrNotFound) {
			return CatalogRoom{}, ErrInvalidCategory
		}
		if err != nil {
			return CatalogRoom{}, err
		}
		closer.Close()
	}

	room := CatalogRoom{
		ID:         uuid.NewString(),
		Name:       n.Name,
		CategoryID: n.CategoryID,
		MaxPlayer:  n.MaxPlayer,
		Game:       n.Game,
		Status:     StatusWaiting,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.putRoom(room); err != nil {
		return CatalogRoom{}, err
	}

	return room, nil
}

func (s *PebbleCatalog) SetRoomStatus(ctx context.Context, id string, status RoomStatus) (CatalogRoom, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return CatalogRoom{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.getRoom(id)
	if err != nil {
		return CatalogRoom{}, err
	}

	room.Status = status
	if err := s.putRoom(room); err != nil {
		return CatalogRoom{}, err
	}

	return room, nil
}

func (s *PebbleCatalog) DeleteRoom(ctx context.Context, id string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getRoom(id); err != nil {
		return err
	}

	return s.db.Delete(roomKey(id), pebble.Sync)
}

func (s *PebbleCatalog) ListCategories(ctx context.Context) ([]Category, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	categories, err := scan[Category](s.db, prefixCategory)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(categories, func(a, b Category) int { return cmp.Compare(a.ID, b.ID) })

	return categories, nil
}

func (s *PebbleCatalog) ListParagraphs(ctx context.Context) ([]Paragraph, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return scan[Paragraph](s.db, prefixParagraph)
}
