// Package window shows the game in a desktop window with ebiten.
package window

import (
	"context"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten"
	"github.com/hajimehoshi/ebiten/inpututil"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// errClosed ends ebiten.Run from inside the update function.
var errClosed = errors.New("window: closed")

var keyDirections = []struct {
	key ebiten.Key
	dir structs.Direction
}{
	{ebiten.KeyUp, structs.Up},
	{ebiten.KeyDown, structs.Down},
	{ebiten.KeyLeft, structs.Left},
	{ebiten.KeyRight, structs.Right},
}

var ackKeys = []ebiten.Key{ebiten.KeyEnter, ebiten.KeySpace, ebiten.KeyEscape}

// Sender accepts directions for the game driver.
type Sender interface {
	Send(dir structs.Direction) bool
}

// Window is the ebiten display/input surface.
type Window struct {
	title   string
	width   int
	height  int
	icons   []image.Image
	raster  *render.Rasterizer
	sprites render.Sprites

	mu      sync.Mutex
	ctx     context.Context
	sender  Sender
	pixels  *image.RGBA
	dirty   bool
	ack     chan struct{}
	closing bool
	canvas  *ebiten.Image
}

// New creates a window sized for layout. icons may be empty.
func New(title string, layout render.Layout, raster *render.Rasterizer, sprites render.Sprites, icons []image.Image) *Window {
	side := layout.GridSize * layout.TileSize
	return &Window{
		title:   title,
		width:   side,
		height:  side,
		icons:   icons,
		raster:  raster,
		sprites: sprites,
		ctx:     context.Background(),
	}
}

// Bind connects the window to the driver that consumes directions.
func (w *Window) Bind(sender Sender) {
	w.mu.Lock()
	w.sender = sender
	w.mu.Unlock()
}

// Run opens the window and blocks until it is closed or ctx is done.
// It must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if len(w.icons) > 0 {
		ebiten.SetWindowIcon(w.icons)
	}
	err := ebiten.Run(w.update, w.width, w.height, 1, w.title)
	if err == errClosed {
		return nil
	}
	return errors.Wrap(err, "window: run")
}

// Close makes the next update end the window loop.
func (w *Window) Close() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
}

// Present rasterises the frame; the next update uploads it.
func (w *Window) Present(f render.Frame, snap structs.Snapshot) {
	img := w.raster.Rasterize(f, w.sprites)
	w.mu.Lock()
	w.pixels = img
	w.dirty = true
	w.mu.Unlock()
}

// AnnounceFinalScore waits for Enter, Space or Escape. The final-score
// message is already part of the last presented frame.
func (w *Window) AnnounceFinalScore(ctx context.Context, snap structs.Snapshot) error {
	ack := make(chan struct{})
	w.mu.Lock()
	w.ack = ack
	w.mu.Unlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		w.mu.Lock()
		w.ack = nil
		w.mu.Unlock()
		return ctx.Err()
	}
}

func (w *Window) update(screen *ebiten.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closing || w.ctx.Err() != nil {
		return errClosed
	}

	w.handleInput()

	if ebiten.IsDrawingSkipped() {
		return nil
	}
	if w.pixels == nil {
		return nil
	}
	if w.canvas == nil {
		canvas, err := ebiten.NewImage(w.width, w.height, ebiten.FilterDefault)
		if err != nil {
			return errors.Wrap(err, "window: create canvas")
		}
		w.canvas = canvas
	}
	if w.dirty {
		if err := w.canvas.ReplacePixels(w.pixels.Pix); err != nil {
			return errors.Wrap(err, "window: upload frame")
		}
		w.dirty = false
	}
	return screen.DrawImage(w.canvas, &ebiten.DrawImageOptions{})
}

// handleInput must be called with w.mu held.
func (w *Window) handleInput() {
	if w.ack != nil {
		for _, k := range ackKeys {
			if inpututil.IsKeyJustPressed(k) {
				close(w.ack)
				w.ack = nil
				return
			}
		}
		return
	}

	for _, kd := range keyDirections {
		if !inpututil.IsKeyJustPressed(kd.key) || w.sender == nil {
			continue
		}
		if !w.sender.Send(kd.dir) {
			log.WithField("direction", kd.dir.String()).Debug("input queue full, direction dropped")
		}
	}
}
