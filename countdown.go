/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"

	"github.com/rs/zerolog/log"
)

type countdown struct {
	ticker ticker
	count  int
}

func (c *countdown) running() bool {
	return c.ticker != nil
}

func (c *countdown) stop() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// startCountdown announces the first count immediately and then one per
// tick down to zero. The room leaves Idle before the first tick so a second
// quorum cannot start another countdown.
func (r *Room) startCountdown() {
	r.countdown.stop()
	r.countdown.count = r.hub.cfg.countdown
	r.countdown.ticker = r.hub.newTicker(time.Second)

	switch r.kind {
	case kindDrawing:
		r.drawing.hasStarted = true
	case kindTyping:
		r.typing.phase = typingStarting
		r.ensureParagraph(nil)
	}

	log.Debug().Str("room", r.id).Int("from", r.countdown.count).Msg("countdown started")

	r.broadcast(evGameCountdown, r.countdown.count)
}

func (r *Room) countdownTick() {
	r.countdown.count--
	r.broadcast(evGameCountdown, r.countdown.count)

	if r.countdown.count > 0 {
		return
	}

	r.countdown.stop()

	switch r.kind {
	case kindDrawing:
		r.beginDrawingRound()
	case kindTyping:
		r.beginTypingRound()
	}
}

func (r *Room) cancelCountdown() {
	r.countdown.stop()

	switch r.kind {
	case kindDrawing:
		r.drawing.hasStarted = false
	case kindTyping:
		r.typing.phase = typingIdle
	}

	log.Debug().Str("room", r.id).Msg("countdown cancelled")

	r.broadcast(evCountdownCancelled, nil)
}
