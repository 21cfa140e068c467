/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 64 * 1024

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response failed")
	}
}

// writeError maps catalog errors onto status codes.
func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, ErrInvalidRoom), errors.Is(err, ErrInvalidCategory):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrRoomNotFound):
		status, msg = http.StatusNotFound, "Room not found"
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("remote", realIP(r)).Msg("request failed")
	}

	writeJSON(cfg, w, status, errorBody{Message: msg})
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeout)
}

func logServed(what string, r *http.Request, start time.Time) {
	log.Debug().
		Str("remote", realIP(r)).
		Dur("took", time.Since(start).Round(time.Microsecond)).
		Msgf("SERVE: %s", what)
}

func serveListRooms(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		start := time.Now()
		ctx, cancel := requestContext(r)
		defer cancel()

		rooms, err := catalog.ListRooms(ctx)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, rooms)
		logServed("room list", r, start)
	}
}

func serveGetRoom(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		room, err := catalog.GetRoom(ctx, p.ByName("id"))
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room)
	}
}

func serveCreateRoom(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var n NewRoom

		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err := dec.Decode(&n); err != nil {
			writeError(cfg, w, r, invalidf("malformed body"))
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		room, err := catalog.CreateRoom(ctx, n)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		log.Info().Str("room", room.ID).Str("name", room.Name).Str("game", room.Game).Msg("room created")

		writeJSON(cfg, w, http.StatusCreated, room)
	}
}

func serveMarkRoomPlaying(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		room, err := catalog.SetRoomStatus(ctx, p.ByName("id"), StatusPlaying)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room)
	}
}

func serveDeleteRoom(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		if err := catalog.DeleteRoom(ctx, p.ByName("id")); err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, errorBody{Message: "Room deleted"})
	}
}

func serveCategories(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		categories, err := catalog.ListCategories(ctx)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, categories)
	}
}

func serveParagraphs(cfg *Config, catalog Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := requestContext(r)
		defer cancel()

		paragraphs, err := catalog.ListParagraphs(ctx)
		if err != nil {
			writeError(cfg, w, r, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, paragraphs)
	}
}

func registerCatalog(cfg *Config, catalog Catalog, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/rooms", serveListRooms(cfg, catalog))
	mux.POST(cfg.prefix+"/rooms", serveCreateRoom(cfg, catalog))
	mux.GET(cfg.prefix+"/rooms/:id", serveGetRoom(cfg, catalog))
	mux.PATCH(cfg.prefix+"/rooms/:id", serveMarkRoomPlaying(cfg, catalog))
	mux.DELETE(cfg.prefix+"/rooms/:id", serveDeleteRoom(cfg, catalog))
	mux.GET(cfg.prefix+"/rooms/:id/qr", serveRoomQR(cfg, catalog))
	mux.GET(cfg.prefix+"/categories", serveCategories(cfg, catalog))
	mux.GET(cfg.prefix+"/paragraphs", serveParagraphs(cfg, catalog))
}
