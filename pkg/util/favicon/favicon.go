// Package favicon converts images to the data uri shown in the server list.
package favicon

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Size is the width and height of a favicon in pixels.
const Size = 64

// Favicon is a 64x64 png data uri image sent in response to a server list ping.
// Example: "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAEAAAAABCAYAAABubagXAAAAEElEQVR42mP8z8BQzzCCAQB+lAGA+H8KEAAAAABJRU5ErkJggg=="
type Favicon string

const (
	dataImagePrefix = "data:image/"
	dataFullPrefix  = dataImagePrefix + "png;base64,"
)

// Parse takes a data uri or the filename of a png or jpeg image and converts it to a Favicon.
func Parse(s string) (Favicon, error) {
	if strings.HasPrefix(s, dataImagePrefix) {
		return Favicon(s), nil
	}
	f, err := FromFile(s)
	if err != nil {
		return "", fmt.Errorf("favicon: %w", err)
	}
	return f, nil
}

// FromFile reads the image file and converts it to a Favicon.
func FromFile(filename string) (Favicon, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("error decoding image %s: %w", filename, err)
	}
	return FromImage(img)
}

// FromImage converts img to a Favicon, scaling it down if it is larger than Size.
func FromImage(img image.Image) (Favicon, error) {
	if b := img.Bounds(); b.Dx() > Size || b.Dy() > Size {
		img = resize.Resize(Size, Size, img, resize.Bilinear)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return "", err
	}
	return Favicon(dataFullPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Image decodes the png encoded in the favicon.
func (f Favicon) Image() (image.Image, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(f), dataFullPrefix))
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(b))
}
