/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiServer struct {
	*httptest.Server
	hub *Hub
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()

	cfg := testConfig()
	cat := newMemCatalog(t)
	hub := newHub(cfg, cat)

	errs := make(chan error, 16)
	srv := httptest.NewServer(withCORS(cfg, newRouter(cfg, cat, hub, errs)))
	t.Cleanup(srv.Close)

	return &apiServer{Server: srv, hub: hub}
}

func (s *apiServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func TestRoomsAPI(t *testing.T) {
	s := newAPIServer(t)

	resp := s.do(t, http.MethodPost, "/rooms", `{"name":"Tebak Hewan","categoryId":1,"maxPlayer":5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	room := decode[CatalogRoom](t, resp)
	assert.Equal(t, "Tebak Hewan", room.Name)
	assert.Equal(t, 5, room.MaxPlayer)
	assert.Equal(t, gameDrawing, room.Game)
	assert.Equal(t, StatusWaiting, room.Status)

	resp = s.do(t, http.MethodGet, "/rooms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rooms := decode[[]CatalogRoom](t, resp)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	resp = s.do(t, http.MethodPatch, "/rooms/"+room.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusPlaying, decode[CatalogRoom](t, resp).Status)

	resp = s.do(t, http.MethodGet, "/rooms/"+room.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusPlaying, decode[CatalogRoom](t, resp).Status)

	resp = s.do(t, http.MethodDelete, "/rooms/"+room.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Room deleted", decode[errorBody](t, resp).Message)

	resp = s.do(t, http.MethodGet, "/rooms", "")
	assert.Empty(t, decode[[]CatalogRoom](t, resp))
}

func TestRoomsAPIErrors(t *testing.T) {
	s := newAPIServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "malformed", method: http.MethodPost, path: "/rooms", body: `{"name":`, status: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPost, path: "/rooms", body: `{"game":"typing"}`, status: http.StatusBadRequest},
		{name: "bad game", method: http.MethodPost, path: "/rooms", body: `{"name":"x","game":"chess"}`, status: http.StatusBadRequest},
		{name: "unknown category", method: http.MethodPost, path: "/rooms", body: `{"name":"x","categoryId":42}`, status: http.StatusBadRequest},
		{name: "get unknown", method: http.MethodGet, path: "/rooms/nope", status: http.StatusNotFound},
		{name: "patch unknown", method: http.MethodPatch, path: "/rooms/nope", status: http.StatusNotFound},
		{name: "delete unknown", method: http.MethodDelete, path: "/rooms/nope", status: http.StatusNotFound},
		{name: "qr unknown", method: http.MethodGet, path: "/rooms/nope/qr", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode[errorBody](t, resp).Message)
		})
	}
}

func TestCatalogListings(t *testing.T) {
	s := newAPIServer(t)

	resp := s.do(t, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, seedCategories, decode[[]Category](t, resp))

	resp = s.do(t, http.MethodGet, "/paragraphs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Len(t, raw, len(seedParagraphs))
	assert.Equal(t, seedParagraphs[0].Text, raw[0]["paragraph"])
}

func TestRoomQR(t *testing.T) {
	s := newAPIServer(t)

	room := decode[CatalogRoom](t, s.do(t, http.MethodPost, "/rooms", `{"name":"Scan","game":"typing"}`))

	resp := s.do(t, http.MethodGet, "/rooms/"+room.ID+"/qr", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestJoinURL(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/play"

	r := httptest.NewRequest(http.MethodGet, "http://games.example/rooms/abc/qr", nil)
	assert.Equal(t, "http://games.example/play/?game=typing&room=abc", joinURL(cfg, r, CatalogRoom{ID: "abc", Game: gameTyping}))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://games.example/play/?game=drawing&room=abc", joinURL(cfg, r, CatalogRoom{ID: "abc", Game: gameDrawing}))
}

func TestPreflight(t *testing.T) {
	s := newAPIServer(t)

	resp := s.do(t, http.MethodOptions, "/rooms", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestPlainPages(t *testing.T) {
	s := newAPIServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Ok\n", string(body))

	resp = s.do(t, http.MethodGet, "/version", "")
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "gameroom v"+releaseVersion+"\n", string(body))

	resp = s.do(t, http.MethodGet, "/robots.txt", "")
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Disallow: /ws")
}

func TestHomePageListsLiveRooms(t *testing.T) {
	s := newAPIServer(t)

	c := newTestClient(s.hub)
	joinAs(t, s.hub, c, evJoinDrawingRoom, "<lobby>", "A")

	resp := s.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<td>&lt;lobby&gt;</td><td>1</td>")
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "512 B", humanReadableSize(512))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}
