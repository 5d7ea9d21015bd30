package mover

import (
	"context"
	"math"
	"sync"
	"time"
)

// Intent is the set of held movement keys (W/S/A/D).
type Intent struct {
	Up, Down, Left, Right bool
}

func (i Intent) Idle() bool {
	return i.Up == i.Down && i.Left == i.Right
}

// Velocity returns the normalized intent direction scaled by speed, in tiles per second.
// Opposite keys cancel; diagonals are not faster than straight moves.
func Velocity(i Intent, speed float64) (vx, vy float64) {
	if i.Up {
		vy++
	}
	if i.Down {
		vy--
	}
	if i.Left {
		vx--
	}
	if i.Right {
		vx++
	}
	n := math.Hypot(vx, vy)
	if n == 0 {
		return 0, 0
	}
	return vx / n * speed, vy / n * speed
}

// Mover integrates an observer position from the latest intent. Intent may be set from any
// goroutine; Advance is called by the tick loop.
type Mover struct {
	speed float64

	mu     sync.Mutex
	intent Intent
	x, y   float64
}

func New(x, y, speed float64) *Mover {
	return &Mover{x: x, y: y, speed: speed}
}

func (m *Mover) SetIntent(i Intent) {
	m.mu.Lock()
	m.intent = i
	m.mu.Unlock()
}

func (m *Mover) Intent() Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intent
}

func (m *Mover) Position() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// Advance moves the position by velocity*dt and returns the new position.
func (m *Mover) Advance(dt time.Duration) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vx, vy := Velocity(m.intent, m.speed)
	s := dt.Seconds()
	m.x += vx * s
	m.y += vy * s
	return m.x, m.y
}

// Patrol cycles m through right, up, left, down, changing direction every leg. It returns when
// ctx is done.
func Patrol(ctx context.Context, m *Mover, leg time.Duration) {
	if leg <= 0 {
		return
	}
	legs := []Intent{{Right: true}, {Up: true}, {Left: true}, {Down: true}}
	t := time.NewTicker(leg)
	defer t.Stop()
	i := 0
	m.SetIntent(legs[i])
	for {
		select {
		case <-ctx.Done():
			m.SetIntent(Intent{})
			return
		case <-t.C:
			i = (i + 1) % len(legs)
			m.SetIntent(legs[i])
		}
	}
}
