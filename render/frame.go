// Package render turns game snapshots into frame descriptions and rasterises
// them into images.
package render

import (
	"fmt"
	"image/color"

	"github.com/hoshinonyaruko/snake-desktop/memimg"
	"github.com/hoshinonyaruko/snake-desktop/structs"
)

const (
	// FoodScale enlarges the food sprite past its tile for emphasis.
	FoodScale = 1.2
	// BorderWidth is the stroke width of the play-area border.
	BorderWidth = 5
	// ScoreFontSize is the point size of the score overlay.
	ScoreFontSize = 18
)

var (
	Background  = color.RGBA{A: 255}
	BorderColor = color.RGBA{G: 128, A: 255}
	TextColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Layout fixes the pixel geometry of the board.
type Layout struct {
	TileSize int
	GridSize int
}

// Square is one filled snake cell.
type Square struct {
	Cell  structs.Cell
	X, Y  int
	Size  int
	Shade uint8 // 同时用于 R、G、B
}

// Color returns the grey the square is filled with.
func (s Square) Color() color.RGBA {
	return color.RGBA{R: s.Shade, G: s.Shade, B: s.Shade, A: 255}
}

// Placement positions a sprite by its top-left corner.
type Placement struct {
	Cell   structs.Cell
	X, Y   int
	Size   int
	Sprite string
}

// Rect is a stroked rectangle.
type Rect struct {
	X, Y, W, H int
	Width      float64
	Color      color.RGBA
}

// Text is a line of text anchored at its top-left corner.
type Text struct {
	X, Y  float64
	Size  float64
	Value string
	Color color.RGBA
}

// Frame describes everything a surface has to draw for one state.
type Frame struct {
	Width, Height int
	Background    color.RGBA
	Squares       []Square
	Food          Placement
	Border        Rect
	Score         Text
	Message       string // final-score message once the game has ended
}

// Describe builds the frame for s. Snake cell i gets the grey
// 255 - i*(255/len), integer division.
func Describe(s structs.Snapshot, l Layout) Frame {
	side := l.GridSize * l.TileSize
	f := Frame{
		Width:      side,
		Height:     side,
		Background: Background,
		Squares:    make([]Square, len(s.Body)),
	}

	n := len(s.Body)
	for i, c := range s.Body {
		f.Squares[i] = Square{
			Cell:  c,
			X:     c.X * l.TileSize,
			Y:     c.Y * l.TileSize,
			Size:  l.TileSize,
			Shade: uint8(255 - i*(255/n)),
		}
	}

	f.Food = Placement{
		Cell:   s.Food,
		X:      s.Food.X * l.TileSize,
		Y:      s.Food.Y * l.TileSize,
		Size:   int(float64(l.TileSize) * FoodScale),
		Sprite: memimg.FoodSprite,
	}

	f.Border = Rect{W: side, H: side, Width: BorderWidth, Color: BorderColor}

	f.Score = Text{
		X:     10,
		Y:     10,
		Size:  ScoreFontSize,
		Value: ScoreText(s.Score),
		Color: TextColor,
	}

	if s.State == structs.StateEnded {
		f.Message = FinalScoreMessage(s.Score)
	}
	return f
}

// ScoreText is the overlay shown while playing.
func ScoreText(score int) string {
	return fmt.Sprintf("Score: %d", score)
}

// FinalScoreMessage is shown when the game ends.
func FinalScoreMessage(score int) string {
	return fmt.Sprintf("You lost! Your final score is: %d", score)
}
