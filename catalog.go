/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
)

const (
	gameDrawing = "drawing"
	gameTyping  = "typing"

	defaultMaxPlayer = 4
	minMaxPlayer     = 2
	maxMaxPlayer     = 16
)

// CatalogRoom is a room as listed in the lobby. Its ID is the key the live
// coordinator uses for the room.
type CatalogRoom struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CategoryID *int       `json:"categoryId"`
	MaxPlayer  int        `json:"maxPlayer"`
	Game       string     `json:"game"`
	Status     RoomStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewRoom is the body of a create request.
type NewRoom struct {
	Name       string `json:"name"`
	CategoryID *int   `json:"categoryId"`
	MaxPlayer  int    `json:"maxPlayer"`
	Game       string `json:"game"`
}

// normalize trims and validates n, filling in defaults.
func (n *NewRoom) normalize() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Game = strings.ToLower(strings.TrimSpace(n.Game))

	if n.Name == "" {
		return invalidf("name is required")
	}
	if n.Game == "" {
		n.Game = gameDrawing
	}
	if n.Game != gameDrawing && n.Game != gameTyping {
		return invalidf("game must be %q or %q", gameDrawing, gameTyping)
	}
	if n.MaxPlayer == 0 {
		n.MaxPlayer = defaultMaxPlayer
	}
	if n.MaxPlayer < minMaxPlayer || n.MaxPlayer > maxMaxPlayer {
		return invalidf("maxPlayer must be between %d and %d", minMaxPlayer, maxMaxPlayer)
	}

	return nil
}

type Item struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	CategoryID int    `json:"categoryId"`
}

type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

type Paragraph struct {
	ID   int    `json:"id"`
	Text string `json:"paragraph"`
}

// Catalog is the durable record of rooms, word categories and paragraphs.
// Live round state never goes through it.
type Catalog interface {
	ListRooms(ctx context.Context) ([]CatalogRoom, error)
	GetRoom(ctx context.Context, id string) (CatalogRoom, error)
	CreateRoom(ctx context.Context, n NewRoom) (CatalogRoom, error)
	SetRoomStatus(ctx context.Context, id string, status RoomStatus) (CatalogRoom, error)
	DeleteRoom(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)
	ListParagraphs(ctx context.Context) ([]Paragraph, error)
	Close() error
}

func openCatalog(ctx context.Context, cfg *Config) (Catalog, error) {
	switch cfg.catalog {
	case catalogPebble:
		return openPebbleCatalog(cfg.catalogPath, nil)
	case catalogPostgres:
		return openPostgresCatalog(ctx, cfg.databaseURL)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.catalog)
	}
}

// seedCategories and seedParagraphs fill an empty catalog.
var seedCategories = []Category{
	{ID: 1, Name: "Hewan", Items: items(1, "kucing", "gajah", "jerapah", "kupu-kupu", "ikan", "burung", "ular", "kelinci")},
	{ID: 2, Name: "Buah", Items: items(2, "mangga", "pisang", "semangka", "nanas", "apel", "durian", "anggur", "jeruk")},
	{ID: 3, Name: "Benda", Items: items(3, "payung", "sepeda", "kacamata", "gitar", "lampu", "jam", "kursi", "topi")},
	{ID: 4, Name: "Tempat", Items: items(4, "pantai", "gunung", "sekolah", "pasar", "rumah sakit", "kebun", "stasiun", "masjid")},
}

var seedParagraphs = func() []Paragraph {
	out := make([]Paragraph, len(fallbackParagraphs))
	for i, text := range fallbackParagraphs {
		out[i] = Paragraph{ID: i + 1, Text: text}
	}
	return out
}()

func items(categoryID int, names ...string) []Item {
	out := make([]Item, len(names))
	for i, name := range names {
		out[i] = Item{ID: categoryID*100 + i + 1, Name: name, CategoryID: categoryID}
	}
	return out
}
