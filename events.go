/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// handle decodes one inbound frame and queues its effect on the room it
// names. Bad payloads and events for unknown rooms are dropped.
func (h *Hub) handle(c *Client, env Envelope) {
	drop := func(err error) {
		log.Debug().Err(err).Str("conn", c.id).Str("event", env.Event).Msg("event dropped")
	}

	switch env.Event {
	case evJoinRoom, evJoinDrawingRoom:
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		kind := kindTyping
		if env.Event == evJoinDrawingRoom {
			kind = kindDrawing
		}

		h.join(c, strings.TrimSpace(p.RoomID), kind, p.PlayerData)

	case evLeaveRoom, evLeaveDrawingRoom:
		var p playerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			r.removeMember(strings.TrimSpace(p.PlayerName), "")
		})

	case evPlayerReady, evPlayerUnready:
		var p playerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		name := strings.TrimSpace(p.PlayerName)
		h.dispatch(p.RoomID, func(r *Room) {
			if env.Event == evPlayerReady {
				r.setReady(name)
			} else {
				r.setUnready(name)
			}
		})

	case evSelectWord:
		var p selectWordPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			if r.kind == kindDrawing {
				r.selectWord(c.id, p.Drawer, p.Word)
			}
		})

	case evDrawingData:
		var stroke map[string]json.RawMessage
		if err := json.Unmarshal(env.Data, &stroke); err != nil {
			drop(err)
			return
		}

		h.dispatch(decodeRoomID(env.Data), func(r *Room) {
			if r.kind == kindDrawing {
				r.relayStroke(c.id, stroke)
			}
		})

	case evDrawingChat:
		var p chatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			r.chat(p)
		})

	case evCanvasClear:
		h.dispatch(decodeRoomID(env.Data), func(r *Room) {
			if r.kind == kindDrawing {
				r.canvasClear(c.id)
			}
		})

	case evTimeUp, evNextTurn:
		var p turnPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			if r.kind == kindDrawing {
				r.requestTurnEnd(c.id, env.Event, p.CurrentDrawer)
			}
		})

	case evTypingProgress, evPlayerFinished:
		var p progressPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			if r.kind != kindTyping {
				return
			}
			if env.Event == evTypingProgress {
				r.reportProgress(c.id, p.PlayerData)
			} else {
				r.playerFinished(p.PlayerData)
			}
		})

	case evNewGame:
		var p paragraphPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			drop(err)
			return
		}

		h.dispatch(p.RoomID, func(r *Room) {
			if r.kind == kindTyping {
				r.newGame(p.Paragraph)
			}
		})

	case evRequestParagraph:
		h.dispatch(decodeRoomID(env.Data), func(r *Room) {
			if r.kind == kindTyping {
				r.requestParagraph(c.id)
			}
		})

	case evGameFinish:
		h.dispatch(decodeRoomID(env.Data), func(r *Room) {
			r.resetGame()
		})

	case evRequestRoomCounts:
		c.push(Message{Event: evInitialRoomCounts, Data: h.roomCounts()})

	default:
		log.Debug().Str("conn", c.id).Str("event", env.Event).Msg("unknown event")
	}
}

// join queues c's join on the room. The room actor binds the connection and
// removes it from whatever member it represented before.
func (h *Hub) join(c *Client, roomID string, kind gameKind, pd PlayerData) {
	pd.Name = strings.TrimSpace(pd.Name)
	if roomID == "" || pd.Name == "" {
		log.Debug().Str("conn", c.id).Msg("join without room or name dropped")
		return
	}

	h.dispatchOrCreate(roomID, kind, func(r *Room) {
		r.join(c.id, kind, pd)
	})
}
