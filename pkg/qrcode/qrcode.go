// Package qrcode renders scan payloads as fixed-size PNG QR codes.
package qrcode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"

	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/draw"

	"assetd/pkg/apierr"
)

const (
	DefaultSize   = 300
	DefaultMargin = 1
)

// Image is a rendered code together with the file name it should be stored under.
type Image struct {
	Name string
	Data []byte
}

// Generator renders square QR codes. The zero value is not usable; call New.
type Generator struct {
	size   int
	margin int
	level  qr.ErrorCorrectionLevel
}

// New returns a Generator producing 300x300 images with a one-module quiet zone.
func New() *Generator {
	return &Generator{size: DefaultSize, margin: DefaultMargin, level: qr.L}
}

// Generate renders payload and names the result after code.
func (g *Generator) Generate(code, payload string) (Image, error) {
	data, err := g.Render(payload)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: FileName(code), Data: data}, nil
}

// FileName is the artifact name used for the code image of a human code.
func FileName(code string) string {
	return code + ".png"
}

// Render encodes payload into PNG bytes. Output is byte-identical for equal
// payloads. Payloads that are empty or exceed QR capacity fail with
// KindEncoding.
func (g *Generator) Render(payload string) ([]byte, error) {
	const op = "qrcode.Render"

	if payload == "" {
		return nil, apierr.Wrap(apierr.KindEncoding, op, errors.New("payload is empty"))
	}

	code, err := qr.Encode(payload, g.level, qr.Auto)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindEncoding, op, err)
	}

	modules := code.Bounds().Dx()
	src := image.NewGray(image.Rect(0, 0, modules, modules))
	for y := 0; y < modules; y++ {
		for x := 0; x < modules; x++ {
			if isDark(code.At(x, y)) {
				src.SetGray(x, y, color.Gray{Y: 0})
			} else {
				src.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}

	dst, err := g.layout(src, modules)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindEncoding, op, err)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, apierr.Wrap(apierr.KindEncoding, op, err)
	}
	return buf.Bytes(), nil
}

// layout scales the module grid by the largest whole factor that fits the
// quiet zone and centres it on a white canvas.
func (g *Generator) layout(src *image.Gray, modules int) (*image.Gray, error) {
	total := modules + 2*g.margin
	if total > g.size {
		return nil, errors.New("payload needs more modules than the image can hold")
	}
	scale := g.size / total
	offset := (g.size - modules*scale) / 2

	dst := image.NewGray(image.Rect(0, 0, g.size, g.size))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	target := image.Rect(offset, offset, offset+modules*scale, offset+modules*scale)
	draw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func isDark(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y < 0x80
}
