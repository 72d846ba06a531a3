package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/disintegration/imaging"
)

// Strategy identifies one preprocessing rendering of the input image.
type Strategy int

const (
	StrategyContrastSharpen Strategy = iota // thin / aliased glyphs
	StrategyThreshold                       // outlined / stroked text
	StrategyThresholdInvert                 // light text on dark panels
	StrategyEqualize                        // general-purpose fallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyContrastSharpen:
		return "contrast+sharpen"
	case StrategyThreshold:
		return "threshold"
	case StrategyThresholdInvert:
		return "threshold-invert"
	case StrategyEqualize:
		return "equalize"
	}
	return "unknown"
}

// Variant is one preprocessed rendering, PNG-encoded, discarded after recognition.
type Variant struct {
	Strategy Strategy
	PNG      []byte
}

const (
	maxUpscale   = 2.0
	maxOutWidth  = 1800
	targetHeight = 1200
	thresholdCut = 190
)

// GenerateVariants decodes raw image bytes and produces the fixed set of
// preprocessed renderings in strategy order. A failing strategy is skipped;
// zero successful variants returns ErrImageProcessing.
func GenerateVariants(raw []byte) ([]Variant, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrImageProcessing, err)
	}
	base := upscaleGray(src)

	type step struct {
		id Strategy
		fn func(*image.NRGBA) image.Image
	}
	steps := []step{
		{StrategyContrastSharpen, func(g *image.NRGBA) image.Image {
			out := imaging.AdjustContrast(g, 35)
			return imaging.Sharpen(out, 1.0)
		}},
		{StrategyThreshold, func(g *image.NRGBA) image.Image {
			return binarize(g, thresholdCut)
		}},
		{StrategyThresholdInvert, func(g *image.NRGBA) image.Image {
			return imaging.Invert(binarize(g, thresholdCut))
		}},
		{StrategyEqualize, func(g *image.NRGBA) image.Image {
			out := equalizeHistogram(g)
			return imaging.AdjustContrast(out, 15)
		}},
	}

	var out []Variant
	for _, st := range steps {
		img := st.fn(base)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			log.Printf("variant %s encode failed: %v", st.id, err)
			continue
		}
		out = append(out, Variant{Strategy: st.id, PNG: buf.Bytes()})
	}
	if len(out) == 0 {
		return nil, ErrImageProcessing
	}
	return out, nil
}

// upscaleGray converts to grayscale and upscales small screenshots so glyphs
// survive recognition, bounded to maxUpscale and maxOutWidth.
func upscaleGray(src image.Image) *image.NRGBA {
	gray := imaging.Grayscale(src)
	h := gray.Bounds().Dy()
	if h > 0 && h < targetHeight {
		factor := float64(targetHeight) / float64(h)
		if factor > maxUpscale {
			factor = maxUpscale
		}
		gray = imaging.Resize(gray, 0, int(float64(h)*factor), imaging.Lanczos)
	}
	if gray.Bounds().Dx() > maxOutWidth {
		gray = imaging.Resize(gray, maxOutWidth, 0, imaging.Lanczos)
	}
	return gray
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// equalizeHistogram spreads the grayscale histogram across the full range.
func equalizeHistogram(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			hist[uint8((r+g+bb)/3>>8)]++
		}
	}
	total := w * h
	if total == 0 {
		return img
	}
	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(255 * cum / total)
	}
	out := image.NewNRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := lut[uint8((r+g+bb)/3>>8)]
			out.Set(b.Min.X+x, b.Min.Y+y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
