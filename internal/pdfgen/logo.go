package pdfgen

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	logoMaxWidth  = 160
	logoMaxHeight = 64
	logoGap       = 16
)

// decodeLogo reads a base64 image data URL such as "data:image/png;base64,...".
// Anything else, including an image in a format we cannot decode, is no logo.
func decodeLogo(dataURL string) (image.Image, bool) {
	meta, payload, found := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !found {
		return nil, false
	}
	mediaType, ok := strings.CutPrefix(meta, "data:")
	if !ok || !strings.HasPrefix(mediaType, "image/") || !strings.HasSuffix(mediaType, ";base64") {
		return nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, false
		}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, false
	}
	return img, true
}

// drawLogo fits logo into the header box at origin keeping its aspect ratio
// and returns the width it took
func drawLogo(page xdraw.Image, logo image.Image, origin image.Point) int {
	b := logo.Bounds()
	scale := min(float64(logoMaxWidth)/float64(b.Dx()), float64(logoMaxHeight)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	dst := image.Rect(origin.X, origin.Y+(logoMaxHeight-h)/2, origin.X+w, origin.Y+(logoMaxHeight-h)/2+h)
	xdraw.CatmullRom.Scale(page, dst, logo, b, xdraw.Over, nil)
	return w
}
