/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// drawingState is one drawing room's round. word is set only while
// isPlaying; hasStarted covers the countdown as well as the round itself.
type drawingState struct {
	isPlaying  bool
	hasStarted bool
	drawer     string
	word       string
	guessed    map[string]bool
}

func (r *Room) currentDrawer() *Player {
	if r.drawing.drawer == "" {
		return nil
	}

	_, m := r.member(r.drawing.drawer)
	if m == nil {
		return nil
	}

	p := *m
	p.IsDrawing = true

	return &p
}

func (r *Room) gameStateSync() GameStateSync {
	return GameStateSync{
		IsPlaying:     r.drawing.isPlaying,
		CurrentDrawer: r.currentDrawer(),
		Word:          optional(r.drawing.word),
		HasStarted:    r.drawing.hasStarted,
		TimeLeft:      r.timer.timeLeft,
	}
}

func (r *Room) beginDrawingRound() {
	if len(r.members) < 2 {
		log.Debug().Str("room", r.id).Msg("round not started, not enough players")
		r.drawing = drawingState{}
		return
	}

	r.drawing = drawingState{
		isPlaying:  true,
		hasStarted: true,
		drawer:     r.members[0].Name,
	}
	clear(r.ready)
	r.resetTimer()

	log.Info().Str("room", r.id).Str("drawer", r.drawing.drawer).Msg("drawing round started")

	r.broadcast(evGameStart, nil)
	r.broadcast(evGameStateUpdate, GameStateUpdate{CurrentDrawer: r.currentDrawer()})
	r.broadcastPlayers()

	r.hub.markPlaying(r.id)
}

// selectWord is accepted only from the current drawer's own connection.
func (r *Room) selectWord(connID, drawer, word string) {
	word = strings.TrimSpace(word)
	if !r.drawing.isPlaying || word == "" || drawer != r.drawing.drawer {
		return
	}
	if _, m := r.member(drawer); m == nil || m.ConnectionID != connID {
		return
	}

	r.drawing.word = word
	r.drawing.guessed = make(map[string]bool)
	r.startTimer()

	r.broadcast(evWordSelected, wordSelected{Word: word, Drawer: drawer})
	r.broadcast(evGameStateUpdate, GameStateUpdate{CurrentDrawer: r.currentDrawer(), Word: optional(word)})
}

// requestTurnEnd handles client time-up and next-turn reports. The server
// clock is authoritative, so a report naming a drawer who is no longer
// drawing is stale and dropped.
func (r *Room) requestTurnEnd(connID, event, reported string) {
	if event == evTimeUp {
		r.send(connID, evTimeUpAck, timeUpAck{Received: true, CurrentDrawer: reported})
	}

	if !r.drawing.isPlaying {
		return
	}
	if event == evTimeUp && reported != r.drawing.drawer {
		return
	}
	if event == evNextTurn && reported != "" && reported != r.drawing.drawer {
		return
	}

	r.endTurn()
}

// endTurn passes the turn round-robin over the current members. A drawer
// who is no longer a member counts as index -1, so the first member is next.
func (r *Room) endTurn() {
	if len(r.members) == 0 {
		log.Warn().Str("room", r.id).Msg("turn rotation with no members skipped")
		return
	}

	i, _ := r.member(r.drawing.drawer)
	next := r.members[(i+1)%len(r.members)]

	r.passTurn(next.Name)
}

func (r *Room) passTurn(next string) {
	r.drawing.drawer = next
	r.drawing.word = ""
	r.drawing.guessed = nil
	r.resetTimer()

	log.Debug().Str("room", r.id).Str("drawer", next).Msg("turn passed")

	r.broadcast(evCanvasClear, nil)
	r.broadcast(evResetTimer, nil)
	r.broadcast(evGameStateUpdate, GameStateUpdate{CurrentDrawer: r.currentDrawer()})
	r.broadcastPlayers()
}

// drawerLeft reacts to member name (formerly at index i) leaving mid-round.
func (r *Room) drawerLeft(name string, i int) {
	if !r.drawing.isPlaying {
		return
	}

	if len(r.members) < 2 {
		log.Info().Str("room", r.id).Msg("not enough players left, round reset")
		r.resetGame()
		return
	}

	if name == r.drawing.drawer {
		r.passTurn(r.members[i%len(r.members)].Name)
	}
}

func (r *Room) isCorrectGuess(name, text string) bool {
	word := strings.TrimSpace(r.drawing.word)
	if word == "" || name == r.drawing.drawer {
		return false
	}
	if _, m := r.member(name); m == nil {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(text), word)
}

// canvasClear relays a clear only when it comes from the drawer.
func (r *Room) canvasClear(connID string) {
	_, m := r.member(r.drawing.drawer)
	if m == nil || m.ConnectionID != connID {
		return
	}

	r.broadcastExcept(connID, evCanvasClear, nil)
}
