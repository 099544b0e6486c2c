package render

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// Sprites hands out images already scaled to a square edge length.
type Sprites interface {
	Scaled(name string, size int) (image.Image, bool)
}

var missingSprite = color.RGBA{R: 200, A: 255}

// Rasterizer draws frames with gg. It is safe for concurrent use.
type Rasterizer struct {
	mu          sync.Mutex
	scoreFace   font.Face
	messageFace font.Face
}

// NewRasterizer parses the bundled bold font.
func NewRasterizer() (*Rasterizer, error) {
	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "render: parse font")
	}
	return &Rasterizer{
		scoreFace:   truetype.NewFace(f, &truetype.Options{Size: ScoreFontSize}),
		messageFace: truetype.NewFace(f, &truetype.Options{Size: ScoreFontSize + 4}),
	}, nil
}

// Rasterize draws f. sprites may be nil, the food is then a filled square.
func (r *Rasterizer) Rasterize(f Frame, sprites Sprites) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(f.Width, f.Height)
	dc.SetColor(f.Background)
	dc.Clear()

	for _, sq := range f.Squares {
		dc.SetColor(sq.Color())
		dc.DrawRectangle(float64(sq.X), float64(sq.Y), float64(sq.Size), float64(sq.Size))
		dc.Fill()
	}

	r.drawFood(dc, f.Food, sprites)

	dc.SetColor(f.Border.Color)
	dc.SetLineWidth(f.Border.Width)
	dc.DrawRectangle(float64(f.Border.X), float64(f.Border.Y), float64(f.Border.W), float64(f.Border.H))
	dc.Stroke()

	dc.SetFontFace(r.scoreFace)
	dc.SetColor(f.Score.Color)
	dc.DrawStringAnchored(f.Score.Value, f.Score.X, f.Score.Y, 0, 1)

	if f.Message != "" {
		r.drawMessage(dc, f)
	}

	return dc.Image().(*image.RGBA)
}

func (r *Rasterizer) drawFood(dc *gg.Context, p Placement, sprites Sprites) {
	if sprites != nil {
		if img, ok := sprites.Scaled(p.Sprite, p.Size); ok {
			dc.DrawImage(img, p.X, p.Y)
			return
		}
	}
	// 图片没找到，用色块代替
	dc.SetColor(missingSprite)
	dc.DrawRectangle(float64(p.X), float64(p.Y), float64(p.Size), float64(p.Size))
	dc.Fill()
}

func (r *Rasterizer) drawMessage(dc *gg.Context, f Frame) {
	w, h := float64(f.Width), float64(f.Height)
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, h/2-40, w, 80)
	dc.Fill()

	dc.SetFontFace(r.messageFace)
	dc.SetColor(TextColor)
	dc.DrawStringAnchored(f.Message, w/2, h/2, 0.5, 0.5)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
