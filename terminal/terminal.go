// Package terminal shows the game in a terminal with tcell.
package terminal

import (
	"context"
	"sync"

	"github.com/gdamore/tcell"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const foodRune = '🍎'

var (
	borderStyle = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 128, 0))
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// Sender accepts directions for the game driver.
type Sender interface {
	Send(dir structs.Direction) bool
}

// Terminal is the tcell display/input surface. Every grid cell takes two
// columns so the board stays roughly square.
type Terminal struct {
	screen tcell.Screen

	mu     sync.Mutex
	sender Sender
	frame  render.Frame
	snap   structs.Snapshot
	ack    chan struct{}
	quit   func()
}

// New wraps an initialised screen. quit is called when the player asks to leave.
func New(screen tcell.Screen, quit func()) *Terminal {
	return &Terminal{screen: screen, quit: quit}
}

// NewScreen creates and initialises the real terminal screen.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "terminal: create screen")
	}
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "terminal: init screen")
	}
	return screen, nil
}

// Bind connects the terminal to the driver that consumes directions.
func (t *Terminal) Bind(sender Sender) {
	t.mu.Lock()
	t.sender = sender
	t.mu.Unlock()
}

// Run handles key events until ctx is done, then restores the terminal.
func (t *Terminal) Run(ctx context.Context) error {
	defer t.screen.Fini()

	ec := make(chan tcell.Event)
	go func() {
		for {
			e := t.screen.PollEvent()
			if e == nil {
				return
			}
			select {
			case ec <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-ec:
			switch ev := e.(type) {
			case *tcell.EventKey:
				t.handleKey(ev)
			case *tcell.EventResize:
				t.mu.Lock()
				t.draw()
				t.mu.Unlock()
			}
		}
	}
}

func (t *Terminal) handleKey(ev *tcell.EventKey) {
	t.mu.Lock()
	ack, sender := t.ack, t.sender
	t.mu.Unlock()

	if ack != nil {
		if isAcknowledge(ev) {
			t.mu.Lock()
			t.ack = nil
			t.mu.Unlock()
			close(ack)
		}
		return
	}

	if dir, ok := keyDirection(ev); ok {
		if sender != nil && !sender.Send(dir) {
			log.WithField("direction", dir.String()).Debug("input queue full, direction dropped")
		}
		return
	}
	if isQuit(ev) && t.quit != nil {
		t.quit()
	}
}

func keyDirection(ev *tcell.EventKey) (structs.Direction, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return structs.Up, true
	case tcell.KeyDown:
		return structs.Down, true
	case tcell.KeyLeft:
		return structs.Left, true
	case tcell.KeyRight:
		return structs.Right, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W':
			return structs.Up, true
		case 's', 'S':
			return structs.Down, true
		case 'a', 'A':
			return structs.Left, true
		case 'd', 'D':
			return structs.Right, true
		}
	}
	return structs.Direction{}, false
}

func isAcknowledge(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEnter, tcell.KeyEscape:
		return true
	case tcell.KeyRune:
		return ev.Rune() == ' '
	}
	return false
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// Present redraws the board.
func (t *Terminal) Present(f render.Frame, snap structs.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frame = f
	t.snap = snap
	t.draw()
}

// AnnounceFinalScore shows the final score and waits for Enter, Space or Escape.
func (t *Terminal) AnnounceFinalScore(ctx context.Context, snap structs.Snapshot) error {
	ack := make(chan struct{})
	t.mu.Lock()
	t.ack = ack
	t.mu.Unlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		t.ack = nil
		t.mu.Unlock()
		return ctx.Err()
	}
}

// draw must be called with t.mu held.
func (t *Terminal) draw() {
	t.screen.Clear()
	grid := t.snap.GridSize
	if grid == 0 {
		t.screen.Show()
		return
	}

	t.drawBorder(grid)
	for _, sq := range t.frame.Squares {
		style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(sq.Shade), int32(sq.Shade), int32(sq.Shade)))
		x, y := cellOrigin(sq.Cell)
		t.screen.SetContent(x, y, ' ', nil, style)
		t.screen.SetContent(x+1, y, ' ', nil, style)
	}
	fx, fy := cellOrigin(t.frame.Food.Cell)
	t.screen.SetContent(fx, fy, foodRune, nil, tcell.StyleDefault)

	t.drawString(0, grid+2, textStyle, t.frame.Score.Value)
	if t.frame.Message != "" {
		t.drawString(0, grid+3, textStyle, t.frame.Message+" (press Enter)")
	}
	t.screen.Show()
}

func cellOrigin(c structs.Cell) (int, int) {
	return 1 + 2*c.X, 1 + c.Y
}

func (t *Terminal) drawBorder(grid int) {
	right, bottom := 2*grid+1, grid+1
	for x := 1; x < right; x++ {
		t.screen.SetContent(x, 0, '─', nil, borderStyle)
		t.screen.SetContent(x, bottom, '─', nil, borderStyle)
	}
	for y := 1; y < bottom; y++ {
		t.screen.SetContent(0, y, '│', nil, borderStyle)
		t.screen.SetContent(right, y, '│', nil, borderStyle)
	}
	t.screen.SetContent(0, 0, '┌', nil, borderStyle)
	t.screen.SetContent(right, 0, '┐', nil, borderStyle)
	t.screen.SetContent(0, bottom, '└', nil, borderStyle)
	t.screen.SetContent(right, bottom, '┘', nil, borderStyle)
}

func (t *Terminal) drawString(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		t.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}
