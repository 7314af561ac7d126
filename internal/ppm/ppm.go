package ppm

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Error kinds surfaced by the loader. Callers can match them with errors.Is;
// the CLI treats them uniformly and only forwards the message.
var (
	ErrEncoding = errors.New("invalid text encoding")
	ErrFormat   = errors.New("not a P3 image")
	ErrParse    = errors.New("malformed image data")
)

// Image holds a decoded P3 image as a flat row-major RGB buffer.
// Exactly one of Pix or Float is non-nil: Pix carries raw channel values on
// the source scale, Float carries values normalized to [0,1]. An Image is
// never mutated after Decode returns it.
type Image struct {
	Width    int
	Height   int
	MaxColor int

	Pix   []uint8
	Float []float64
}

// Normalized reports whether the image carries [0,1] float samples.
func (img *Image) Normalized() bool { return img.Float != nil }

// Len returns the total number of samples (width * height * 3).
func (img *Image) Len() int { return img.Width * img.Height * 3 }

// Sample returns element i of the row-major RGB buffer as a float64.
// For integer images this is the raw channel value; for normalized images
// it lies in [0,1].
func (img *Image) Sample(i int) float64 {
	if img.Float != nil {
		return img.Float[i]
	}
	return float64(img.Pix[i])
}

// Load reads and decodes the P3 image at path. The file is read in full and
// the handle released before any parsing happens. If normalize is true the
// samples are scaled to [0,1] by the declared max color value.
func Load(path string, normalize bool) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	img, err := Decode(raw, normalize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Debug("Loaded image", "path", path, "width", img.Width, "height", img.Height, "max_color", img.MaxColor, "normalized", normalize)
	return img, nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// decodeText turns the raw file bytes into a string, honoring an optional
// UTF-8 or UTF-16LE byte-order marker. No marker means UTF-8.
func decodeText(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, bomUTF16LE) {
		body := raw[len(bomUTF16LE):]
		if len(body)%2 != 0 {
			return "", fmt.Errorf("%w: truncated UTF-16LE content", ErrEncoding)
		}
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		text, err := dec.String(string(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		// The decoder substitutes U+FFFD for broken code units instead of
		// failing, so a replacement rune means the input was not valid UTF-16LE.
		if strings.ContainsRune(text, utf8.RuneError) {
			return "", fmt.Errorf("%w: invalid UTF-16LE content", ErrEncoding)
		}
		return text, nil
	}

	body := bytes.TrimPrefix(raw, bomUTF8)
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: invalid UTF-8 content", ErrEncoding)
	}
	return string(body), nil
}

// nonEmptyLines splits text into lines, trims each, and drops the empty ones.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Decode parses raw P3 file content into an Image. If normalize is true every
// channel value is divided by the max color value and the result carries
// float samples in [0,1]; otherwise it carries the raw uint8 values.
func Decode(raw []byte, normalize bool) (*Image, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: missing magic number", ErrFormat)
	}

	if lines[0] != "P3" {
		return nil, fmt.Errorf("%w: got %q", ErrFormat, lines[0])
	}

	// Comment lines are only recognized directly after the magic number,
	// matching the narrow placement the format has always used here.
	idx := 1
	for idx < len(lines) && strings.HasPrefix(lines[idx], "#") {
		idx++
	}

	if idx >= len(lines) {
		return nil, fmt.Errorf("%w: missing dimensions", ErrParse)
	}
	dims := strings.Fields(lines[idx])
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: expected width and height, got %q", ErrParse, lines[idx])
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return nil, fmt.Errorf("%w: width %q is not an integer", ErrParse, dims[0])
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return nil, fmt.Errorf("%w: height %q is not an integer", ErrParse, dims[1])
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrParse, width, height)
	}
	idx++

	if idx >= len(lines) {
		return nil, fmt.Errorf("%w: missing max color value", ErrParse)
	}
	maxFields := strings.Fields(lines[idx])
	if len(maxFields) != 1 {
		return nil, fmt.Errorf("%w: expected a single max color value, got %q", ErrParse, lines[idx])
	}
	maxColor, err := strconv.Atoi(maxFields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: max color %q is not an integer", ErrParse, maxFields[0])
	}
	if maxColor < 1 || maxColor > 255 {
		return nil, fmt.Errorf("%w: max color %d out of range [1, 255]", ErrParse, maxColor)
	}
	idx++

	var tokens []string
	for _, line := range lines[idx:] {
		tokens = append(tokens, strings.Fields(line)...)
	}

	want := width * height * 3
	if len(tokens) != want {
		return nil, fmt.Errorf("%w: expected %d channel values for %dx%d, got %d", ErrParse, want, width, height, len(tokens))
	}

	img := &Image{
		Width:    width,
		Height:   height,
		MaxColor: maxColor,
	}
	if normalize {
		img.Float = make([]float64, want)
	} else {
		img.Pix = make([]uint8, want)
	}

	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: channel value %q is not an integer", ErrParse, tok)
		}
		if v < 0 || v > maxColor {
			return nil, fmt.Errorf("%w: channel value %d out of range [0, %d]", ErrParse, v, maxColor)
		}
		if normalize {
			img.Float[i] = float64(v) / float64(maxColor)
		} else {
			img.Pix[i] = uint8(v)
		}
	}

	return img, nil
}
