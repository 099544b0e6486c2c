package terminal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	dirs []structs.Direction
}

func (f *fakeSender) Send(d structs.Direction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs = append(f.dirs, d)
	return true
}

func (f *fakeSender) sent() []structs.Direction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]structs.Direction(nil), f.dirs...)
}

const width, height = 80, 40

func simScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(width, height)
	return s
}

func snapshot(state structs.State) structs.Snapshot {
	return structs.Snapshot{
		GridSize: 25,
		Body:     []structs.Cell{{X: 3, Y: 3}, {X: 2, Y: 3}},
		Food:     structs.Cell{X: 10, Y: 10},
		Score:    4,
		State:    state,
	}
}

func present(term *Terminal, s structs.Snapshot) {
	term.Present(render.Describe(s, render.Layout{TileSize: 32, GridSize: 25}), s)
}

func cellAt(s tcell.SimulationScreen, x, y int) tcell.SimCell {
	cells, w, _ := s.GetContents()
	return cells[y*w+x]
}

func rowText(s tcell.SimulationScreen, y, n int) string {
	var out []rune
	for x := 0; x < n; x++ {
		c := cellAt(s, x, y)
		if len(c.Runes) > 0 {
			out = append(out, c.Runes[0])
		}
	}
	return string(out)
}

func TestPresentDrawsBoard(t *testing.T) {
	screen := simScreen(t)
	term := New(screen, nil)
	present(term, snapshot(structs.StateRunning))

	_, bg, _ := cellAt(screen, 7, 4).Style.Decompose()
	require.Equal(t, tcell.NewRGBColor(255, 255, 255), bg)
	_, bg, _ = cellAt(screen, 5, 4).Style.Decompose()
	require.Equal(t, tcell.NewRGBColor(128, 128, 128), bg)

	require.Equal(t, []rune{foodRune}, cellAt(screen, 21, 11).Runes)
	require.Equal(t, []rune{'┌'}, cellAt(screen, 0, 0).Runes)
	require.Equal(t, []rune{'┘'}, cellAt(screen, 51, 26).Runes)
	require.Equal(t, "Score: 4", rowText(screen, 27, 8))
}

func TestPresentEndedShowsMessage(t *testing.T) {
	screen := simScreen(t)
	term := New(screen, nil)
	present(term, snapshot(structs.StateEnded))
	require.Equal(t, "You lost!", rowText(screen, 28, 9))
}

func TestKeysAreSent(t *testing.T) {
	screen := simScreen(t)
	term := New(screen, nil)
	sender := &fakeSender{}
	term.Bind(sender)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	screen.InjectKey(tcell.KeyUp, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	screen.InjectKey(tcell.KeyRight, 0, tcell.ModNone)

	require.Eventually(t, func() bool { return len(sender.sent()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []structs.Direction{structs.Up, structs.Left, structs.Right}, sender.sent())

	cancel()
	require.NoError(t, <-done)
}

func TestQuitKey(t *testing.T) {
	screen := simScreen(t)
	quit := make(chan struct{}, 1)
	term := New(screen, func() { quit <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go term.Run(ctx)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("quit was not requested")
	}
}

func TestAnnounceWaitsForEnter(t *testing.T) {
	screen := simScreen(t)
	quit := make(chan struct{}, 1)
	term := New(screen, func() { quit <- struct{}{} })
	sender := &fakeSender{}
	term.Bind(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go term.Run(ctx)

	done := make(chan error, 1)
	go func() { done <- term.AnnounceFinalScore(ctx, snapshot(structs.StateEnded)) }()

	// arrows are ignored while the score is on screen
	require.Eventually(t, func() bool {
		term.mu.Lock()
		defer term.mu.Unlock()
		return term.ack != nil
	}, time.Second, time.Millisecond)
	screen.InjectKey(tcell.KeyUp, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("announce did not return")
	}
	require.Empty(t, sender.sent())
	require.Len(t, quit, 0)
}

func TestAnnounceCancelled(t *testing.T) {
	term := New(simScreen(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, term.AnnounceFinalScore(ctx, snapshot(structs.StateEnded)))
}
