package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/soccer-vision/internal/ellipse"
	"github.com/ironsheep/soccer-vision/internal/geometry"
	"github.com/ironsheep/soccer-vision/internal/integral"
)

// Default overlay colors.
const (
	DefaultHorizonColor    = "#00ffff"
	DefaultHypothesisColor = "#ff0000"
	DefaultEllipseColor    = "#ffff00"
	DefaultGridColor       = "#808080"
)

// Overlay lists what to draw on top of a frame.
type Overlay struct {
	// Horizon is drawn as a full-width line when set.
	Horizon *geometry.Line

	// Hypotheses are drawn as circles labeled with their score.
	Hypotheses []integral.Hypothesis

	// Ellipses are drawn as outlines, e.g. a fitted center circle.
	Ellipses []ellipse.Ellipse

	// GridSpacing draws a coordinate grid when positive.
	GridSpacing int

	// Colors are hex strings; empty or invalid values fall back to the
	// defaults.
	HorizonColor    string
	HypothesisColor string
	EllipseColor    string
	GridColor       string
}

// OverlayResult contains the annotated frame.
type OverlayResult struct {
	EncodedImage
	Hypotheses int  `json:"hypotheses"`
	Horizon    bool `json:"horizon"`
}

// RenderOverlay draws o on a copy of img and returns it as PNG.
func RenderOverlay(img image.Image, o Overlay) (*OverlayResult, error) {
	canvas := DrawOverlay(img, o)
	enc, err := EncodePNG(canvas)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{
		EncodedImage: *enc,
		Hypotheses:   len(o.Hypotheses),
		Horizon:      o.Horizon != nil,
	}, nil
}

// DrawOverlay draws o on a copy of img. The copy is anchored at the origin;
// overlay coordinates are in the frame's own coordinate space.
func DrawOverlay(img image.Image, o Overlay) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	dc := gg.NewContextForRGBA(canvas)
	dc.SetLineWidth(1)
	// Shift by half a pixel so integer coordinates land on pixel centers.
	dc.Translate(0.5-float64(bounds.Min.X), 0.5-float64(bounds.Min.Y))

	if o.GridSpacing > 0 {
		dc.SetColor(parseColor(o.GridColor, DefaultGridColor))
		for x := bounds.Min.X + o.GridSpacing; x < bounds.Max.X; x += o.GridSpacing {
			dc.DrawLine(float64(x), float64(bounds.Min.Y), float64(x), float64(bounds.Max.Y-1))
		}
		for y := bounds.Min.Y + o.GridSpacing; y < bounds.Max.Y; y += o.GridSpacing {
			dc.DrawLine(float64(bounds.Min.X), float64(y), float64(bounds.Max.X-1), float64(y))
		}
		dc.Stroke()
	}

	if o.Horizon != nil {
		dc.SetColor(parseColor(o.HorizonColor, DefaultHorizonColor))
		dc.DrawLine(o.Horizon.Start.X, o.Horizon.Start.Y, o.Horizon.End.X, o.Horizon.End.Y)
		dc.Stroke()
	}

	dc.SetColor(parseColor(o.EllipseColor, DefaultEllipseColor))
	for _, e := range o.Ellipses {
		dc.Push()
		dc.RotateAbout(e.Angle, e.Center.X, e.Center.Y)
		dc.DrawEllipse(e.Center.X, e.Center.Y, e.SemiMajor, e.SemiMinor)
		dc.Pop()
		dc.Stroke()
	}

	hc := parseColor(o.HypothesisColor, DefaultHypothesisColor)
	for _, h := range o.Hypotheses {
		dc.SetColor(hc)
		dc.DrawCircle(float64(h.Center.X), float64(h.Center.Y), h.Radius)
		dc.Stroke()

		label := strconv.FormatFloat(h.Score, 'f', 0, 64)
		at := image.Pt(h.Center.X+int(math.Ceil(h.Radius))+3, h.Center.Y).Sub(bounds.Min)
		drawLabel(dc, canvas, at, label)
	}
	return canvas
}

// parseColor converts a hex color, falling back to def.
func parseColor(hex, def string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(def)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawLabel writes text in white on a dark box whose left edge is at, with
// the text vertically centered on at.Y. at is in canvas coordinates.
func drawLabel(dc *gg.Context, canvas *image.RGBA, at image.Point, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	top := at.Y - face.Height/2

	dc.Push()
	dc.Identity()
	dc.SetRGBA255(0, 0, 0, 180)
	dc.DrawRectangle(float64(at.X-1), float64(top-1), float64(width+2), float64(face.Height+2))
	dc.Fill()
	dc.Pop()

	d.Dot = fixed.P(at.X, top+ascent)
	d.DrawString(text)
}
