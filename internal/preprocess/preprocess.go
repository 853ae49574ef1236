package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/nfnt/resize"
)

const (
	DefaultSize = 224
	Channels    = 3
)

type Layout string

const (
	// NHWC is height, width, channel order (Keras exports).
	NHWC Layout = "nhwc"
	// NCHW is channel-planar order.
	NCHW Layout = "nchw"
)

type Options struct {
	Size          int
	Layout        Layout
	Interpolation string
}

// Tensor is one preprocessed image, batch dimension of 1.
type Tensor struct {
	Data    []float32
	Width   int
	Height  int
	Layout  Layout
	Resized image.Image
}

// Shape returns the batched tensor shape for the layout.
func (t *Tensor) Shape() []int64 {
	return shape(t.Layout, t.Width, t.Height)
}

func shape(layout Layout, width, height int) []int64 {
	if layout == NCHW {
		return []int64{1, Channels, int64(height), int64(width)}
	}
	return []int64{1, int64(height), int64(width), Channels}
}

type Preprocessor struct {
	size   int
	layout Layout
	interp resize.InterpolationFunction
}

func New(opts Options) (*Preprocessor, error) {
	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid image size %d", size)
	}

	layout := Layout(strings.ToLower(string(opts.Layout)))
	switch layout {
	case "":
		layout = NHWC
	case NHWC, NCHW:
	default:
		return nil, fmt.Errorf("unknown tensor layout %q", opts.Layout)
	}

	interp, err := ParseInterpolation(opts.Interpolation)
	if err != nil {
		return nil, err
	}

	return &Preprocessor{size: size, layout: layout, interp: interp}, nil
}

func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "", "bicubic":
		return resize.Bicubic, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "nearest":
		return resize.NearestNeighbor, nil
	case "lanczos3":
		return resize.Lanczos3, nil
	case "mitchell":
		return resize.MitchellNetravali, nil
	default:
		return 0, fmt.Errorf("unknown interpolation %q", name)
	}
}

func (p *Preprocessor) Size() int { return p.size }

func (p *Preprocessor) Layout() Layout { return p.layout }

// Shape is the batched shape of every tensor Process returns.
func (p *Preprocessor) Shape() []int64 { return shape(p.layout, p.size, p.size) }

// Len is the number of float values in one tensor.
func (p *Preprocessor) Len() int { return p.size * p.size * Channels }

// Process stretches img to a size x size square and scales each 8-bit
// channel to [0,1]. Aspect ratio is not preserved.
func (p *Preprocessor) Process(img image.Image) (*Tensor, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	resized := resize.Resize(uint(p.size), uint(p.size), img, p.interp)

	rb := resized.Bounds()
	width, height := rb.Dx(), rb.Dy()
	plane := width * height
	data := make([]float32, Channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(rb.Min.X+x, rb.Min.Y+y)).(color.NRGBA)

			rNorm := float32(c.R) / 255.0
			gNorm := float32(c.G) / 255.0
			bNorm := float32(c.B) / 255.0

			pixelIndex := y*width + x
			if p.layout == NCHW {
				data[pixelIndex] = rNorm
				data[plane+pixelIndex] = gNorm
				data[2*plane+pixelIndex] = bNorm
			} else {
				data[pixelIndex*Channels] = rNorm
				data[pixelIndex*Channels+1] = gNorm
				data[pixelIndex*Channels+2] = bNorm
			}
		}
	}

	return &Tensor{
		Data:    data,
		Width:   width,
		Height:  height,
		Layout:  p.layout,
		Resized: resized,
	}, nil
}
