// Package loop drives a GameState at a fixed interval and connects it to a
// display/input surface.
package loop

import (
	"context"
	"time"

	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/snake"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	log "github.com/sirupsen/logrus"
)

// Surface is where frames go and where the final score is acknowledged.
type Surface interface {
	// Present is called from the driver goroutine after every state change.
	Present(f render.Frame, s structs.Snapshot)
	// AnnounceFinalScore blocks until the user acknowledges the end of the game.
	AnnounceFinalScore(ctx context.Context, s structs.Snapshot) error
}

// Policy decides what happens after the final score was acknowledged.
type Policy int

const (
	// Exit returns from Run so the process can terminate.
	Exit Policy = iota
	// Restart resets the game and waits for the next direction.
	Restart
)

// Driver owns a GameState. Only the goroutine running Run touches it.
type Driver struct {
	state    *snake.GameState
	surface  Surface
	layout   render.Layout
	interval time.Duration
	policy   Policy
	input    chan structs.Direction

	// newTicker is replaced in tests.
	newTicker func(time.Duration) (<-chan time.Time, func())
}

// New wires state to surface. Every snapshot the state emits is described
// with layout and presented.
func New(state *snake.GameState, surface Surface, layout render.Layout, interval time.Duration, policy Policy) *Driver {
	d := &Driver{
		state:     state,
		surface:   surface,
		layout:    layout,
		interval:  interval,
		policy:    policy,
		input:     make(chan structs.Direction, 8),
		newTicker: realTicker,
	}
	state.Subscribe(func(s structs.Snapshot) {
		d.surface.Present(render.Describe(s, d.layout), s)
	})
	return d
}

func realTicker(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Send queues a direction for the driver. It never blocks; when the queue
// is full the direction is dropped and false is returned.
func (d *Driver) Send(dir structs.Direction) bool {
	select {
	case d.input <- dir:
		return true
	default:
		return false
	}
}

// Run processes inputs and ticks until the game ends under the Exit policy
// or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	var (
		tick <-chan time.Time
		stop = func() {}
	)
	defer func() { stop() }()

	d.surface.Present(render.Describe(d.state.Snapshot(), d.layout), d.state.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return nil

		case dir := <-d.input:
			wasIdle := d.state.State() == structs.StateNotStarted
			accepted := d.state.SetDirection(dir)
			log.WithFields(d.fields()).WithFields(log.Fields{
				"direction": dir.String(),
				"accepted":  accepted,
			}).Debug("direction")
			if wasIdle && d.state.State() == structs.StateRunning {
				log.WithFields(d.fields()).Info("game started")
				tick, stop = d.newTicker(d.interval)
			}

		case <-tick:
			outcome, err := d.state.Step()
			if err != nil {
				// 不在运行状态，停表
				stop()
				tick, stop = nil, func() {}
				continue
			}
			if log.IsLevelEnabled(log.DebugLevel) {
				log.WithFields(d.fields()).WithField("outcome", outcome).Debug("tick")
			}
			if outcome == structs.OutcomeContinued {
				continue
			}

			stop()
			tick, stop = nil, func() {}
			final := d.state.Snapshot()
			log.WithFields(d.fields()).WithField("outcome", outcome).Info("game over")

			if err := d.surface.AnnounceFinalScore(ctx, final); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if d.policy == Exit {
				return nil
			}
			d.drain()
			d.state.Reset()
			log.WithFields(d.fields()).Info("game reset")
		}
	}
}

// drain drops directions typed while the final score was on screen.
func (d *Driver) drain() {
	for {
		select {
		case <-d.input:
		default:
			return
		}
	}
}

func (d *Driver) fields() log.Fields {
	s := d.state.Snapshot()
	return log.Fields{
		"session": s.Session,
		"tick":    s.Tick,
		"score":   s.Score,
		"length":  len(s.Body),
	}
}
