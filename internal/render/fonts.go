package render

import (
	"fmt"
	"math"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// maxFaces bounds the face cache; zoom animations request many sizes.
const maxFaces = 256

type faceKey struct {
	bold bool
	size int // quarter pixels
}

// loadFont parses a TrueType file, or the embedded fallback when path is
// empty.
func loadFont(path string, fallback []byte) (*truetype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading font %s: %w", path, err)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %q: %w", path, err)
	}
	return f, nil
}

// loadFonts resolves the regular and bold fonts. A configured regular font
// doubles as the bold one when no bold file is given, so CJK labels keep
// their glyphs.
func loadFonts(regularPath, boldPath string) (regular, bold *truetype.Font, err error) {
	regular, err = loadFont(regularPath, goregular.TTF)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case boldPath != "":
		bold, err = loadFont(boldPath, nil)
	case regularPath != "":
		bold = regular
	default:
		bold, err = loadFont("", gobold.TTF)
	}
	if err != nil {
		return nil, nil, err
	}
	return regular, bold, nil
}

// face returns a cached face of the given pixel size. Callers hold r.mu.
func (r *Renderer) face(size float64, bold bool) font.Face {
	q := int(math.Round(size * 4))
	if q < 1 {
		q = 1
	}
	key := faceKey{bold: bold, size: q}
	if f, ok := r.faces[key]; ok {
		return f
	}
	if len(r.faces) >= maxFaces {
		for k, f := range r.faces {
			f.Close()
			delete(r.faces, k)
		}
	}
	src := r.regular
	if bold {
		src = r.bold
	}
	f := truetype.NewFace(src, &truetype.Options{
		Size:    float64(q) / 4,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r.faces[key] = f
	return f
}

// measure returns the advance width of s set in face.
func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}
