// 关于蛇的更新
package snake

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/pkg/errors"
)

// GridSize is the default edge length of the square grid.
const GridSize = 25

// ErrNotRunning is returned by Step when the game is not in the running state.
var ErrNotRunning = errors.New("snake: game is not running")

// Observer receives a snapshot after every state change.
type Observer func(structs.Snapshot)

// Option configures a GameState.
type Option func(*GameState)

// WithGridSize overrides the grid edge length. Values below 4 are ignored,
// the interior food area would be empty otherwise.
func WithGridSize(n int) Option {
	return func(g *GameState) {
		if n >= 4 {
			g.gridSize = n
		}
	}
}

// WithFoodAvoidingSnake makes food placement skip cells occupied by the body.
func WithFoodAvoidingSnake(avoid bool) Option {
	return func(g *GameState) {
		g.avoidSnake = avoid
	}
}

// GameState owns the snake, its heading, the food and the score.
// It is not safe for concurrent use; one goroutine owns it.
type GameState struct {
	gridSize   int
	avoidSnake bool
	rng        *rand.Rand

	session   string
	body      []structs.Cell
	heading   structs.Direction // 上一步实际移动的方向
	pending   structs.Direction // 下一步要用的方向
	food      structs.Cell
	score     int
	tick      int
	state     structs.State
	outcome   structs.Outcome
	observers []Observer
}

// New returns a fresh game in the not-started state. rng is kept for the
// lifetime of the game and used for every food placement.
func New(rng *rand.Rand, opts ...Option) *GameState {
	g := &GameState{
		gridSize: GridSize,
		rng:      rng,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.init()
	return g
}

func (g *GameState) init() {
	center := structs.Cell{X: g.gridSize / 2, Y: g.gridSize / 2}
	g.session = uuid.New().String()
	g.body = []structs.Cell{center}
	g.heading = structs.Right
	g.pending = structs.Right
	g.score = 0
	g.tick = 0
	g.state = structs.StateNotStarted
	g.outcome = structs.OutcomeNone
	g.food = g.placeFood()
}

// Reset starts a new game: single-cell snake in the centre heading right,
// score zero, new food, state not started. Observers are kept.
func (g *GameState) Reset() {
	g.init()
	g.notify()
}

// Subscribe registers o to be called after every state change.
func (g *GameState) Subscribe(o Observer) {
	g.observers = append(g.observers, o)
}

// SetDirection requests the direction for the next step. The first call
// starts the game even if the direction itself is rejected. A direction
// exactly opposite to the last movement is rejected while the snake is
// longer than one cell. It reports whether the direction was accepted.
func (g *GameState) SetDirection(d structs.Direction) bool {
	if g.state == structs.StateEnded {
		return false
	}
	started := false
	if g.state == structs.StateNotStarted {
		g.state = structs.StateRunning
		started = true
	}

	accepted := true
	if d.Opposite(g.heading) && len(g.body) > 1 {
		accepted = false
	} else {
		g.pending = d
	}

	if started || accepted {
		g.notify()
	}
	return accepted
}

// Step advances the game by one tick.
func (g *GameState) Step() (structs.Outcome, error) {
	if g.state != structs.StateRunning {
		return structs.OutcomeNone, ErrNotRunning
	}

	newHead := g.body[0].Add(g.pending)

	// 出界
	if !g.inBounds(newHead) {
		return g.end(structs.OutcomeOutOfBounds), nil
	}

	// 咬到自己，尾巴这一步还没移走，也算
	if g.occupied(newHead) {
		return g.end(structs.OutcomeSelfCollision), nil
	}

	g.body = append(g.body, structs.Cell{})
	copy(g.body[1:], g.body)
	g.body[0] = newHead
	g.heading = g.pending
	g.tick++

	if newHead == g.food {
		// 吃到食物，尾巴保留，蛇变长
		g.score++
		g.food = g.placeFood()
	} else {
		g.body = g.body[:len(g.body)-1]
	}

	g.outcome = structs.OutcomeContinued
	g.notify()
	return structs.OutcomeContinued, nil
}

func (g *GameState) end(o structs.Outcome) structs.Outcome {
	g.state = structs.StateEnded
	g.outcome = o
	g.notify()
	return o
}

func (g *GameState) inBounds(c structs.Cell) bool {
	return c.X >= 0 && c.X < g.gridSize && c.Y >= 0 && c.Y < g.gridSize
}

func (g *GameState) occupied(c structs.Cell) bool {
	for _, b := range g.body {
		if b == c {
			return true
		}
	}
	return false
}

// Snapshot returns an immutable copy of the current state.
func (g *GameState) Snapshot() structs.Snapshot {
	body := make([]structs.Cell, len(g.body))
	copy(body, g.body)
	return structs.Snapshot{
		Session:   g.session,
		Tick:      g.tick,
		GridSize:  g.gridSize,
		Body:      body,
		Direction: g.pending,
		Food:      g.food,
		Score:     g.score,
		State:     g.state,
		Outcome:   g.outcome,
	}
}

// State returns the current lifecycle phase.
func (g *GameState) State() structs.State { return g.state }

// Score returns the current score.
func (g *GameState) Score() int { return g.score }

// Direction returns the direction the next step will use.
func (g *GameState) Direction() structs.Direction { return g.pending }

// Len returns the snake length.
func (g *GameState) Len() int { return len(g.body) }

func (g *GameState) notify() {
	if len(g.observers) == 0 {
		return
	}
	s := g.Snapshot()
	for _, o := range g.observers {
		o(s)
	}
}
