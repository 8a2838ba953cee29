package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Labeler draws a line of text on an image with its baseline starting at pos
type Labeler interface {
	Draw(img *gocv.Mat, text string, pos image.Point) error
}

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns the font used for the estimated count label
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.8,
		Color:     White,
		Thickness: 2,
		LineType:  gocv.Line8,
	}
}

// Draw renders the text with the Hershey font
func (f Font) Draw(img *gocv.Mat, text string, pos image.Point) error {

	gocv.PutTextWithParams(img, text, pos, f.Face, f.Scale, f.Color,
		f.Thickness, f.LineType, false)

	return nil
}

// TTFFont renders text with a TrueType font, for glyphs the Hershey fonts do
// not cover
type TTFFont struct {
	face  font.Face
	Color color.RGBA
}

// LoadTTFFont loads the TTF font file and sets up a font face of the given
// point size
func LoadTTFFont(fontPath string, size float64, clr color.RGBA) (*TTFFont, error) {

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &TTFFont{face: face, Color: clr}, nil
}

// Draw renders the text onto an alpha mask the size of the image, then copies
// a solid block of the font color onto the image through that mask
func (t *TTFFont) Draw(img *gocv.Mat, text string, pos image.Point) error {

	mask := image.NewAlpha(image.Rect(0, 0, img.Cols(), img.Rows()))

	dr := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: t.face,
		Dot: fixed.Point26_6{
			X: fixed.I(pos.X),
			Y: fixed.I(pos.Y),
		},
	}
	dr.DrawString(text)

	maskMat, err := gocv.NewMatFromBytes(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, mask.Pix)

	if err != nil {
		return fmt.Errorf("error creating text mask: %w", err)
	}

	defer maskMat.Close()

	solid := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(t.Color.B), float64(t.Color.G), float64(t.Color.R), 0),
		img.Rows(), img.Cols(), img.Type(),
	)
	defer solid.Close()

	solid.CopyToWithMask(img, maskMat)

	return nil
}

// Close releases the font face
func (t *TTFFont) Close() error {
	return t.face.Close()
}
