package soft

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
)

// image is the storage behind textures, renderbuffers and the surface.
// Every texel holds four floats regardless of format; depth lives in the
// first channel.
type image struct {
	w, h   int
	format gpu.Format
	filter gpu.Filter
	wrap   gpu.Wrap
	border mgl32.Vec4
	data   []float32
}

func newImage(format gpu.Format, w, h int) *image {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	img := &image{w: w, h: h, format: format, data: make([]float32, 4*w*h)}
	img.fill(initialValue(format))
	return img
}

func initialValue(format gpu.Format) mgl32.Vec4 {
	switch {
	case format.IsDepth():
		return mgl32.Vec4{1, 0, 0, 1}
	case format.HasAlpha():
		return mgl32.Vec4{}
	default:
		return mgl32.Vec4{0, 0, 0, 1}
	}
}

func (img *image) fill(v mgl32.Vec4) {
	v = img.convert(v)
	for i := 0; i < len(img.data); i += 4 {
		img.data[i], img.data[i+1], img.data[i+2], img.data[i+3] = v[0], v[1], v[2], v[3]
	}
}

// convert applies the storage rules of the format to a value about to be
// written: RGB formats drop alpha, normalized formats clamp.
func (img *image) convert(v mgl32.Vec4) mgl32.Vec4 {
	switch img.format {
	case gpu.FormatRGB32F:
		v[3] = 1
	case gpu.FormatRGBA8:
		for i := range v {
			v[i] = clamp01(v[i])
		}
	case gpu.FormatDepth32F, gpu.FormatDepth32FStencil8:
		v = mgl32.Vec4{clamp01(v[0]), 0, 0, 1}
	}
	return v
}

func (img *image) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < img.w && y < img.h
}

func (img *image) at(x, y int) mgl32.Vec4 {
	i := 4 * (y*img.w + x)
	return mgl32.Vec4{img.data[i], img.data[i+1], img.data[i+2], img.data[i+3]}
}

func (img *image) set(x, y int, v mgl32.Vec4) {
	v = img.convert(v)
	i := 4 * (y*img.w + x)
	img.data[i], img.data[i+1], img.data[i+2], img.data[i+3] = v[0], v[1], v[2], v[3]
}

func (img *image) add(x, y int, v mgl32.Vec4) {
	img.set(x, y, img.at(x, y).Add(v))
}

func (img *image) depth(x, y int) float32 {
	return img.data[4*(y*img.w+x)]
}

func (img *image) setDepth(x, y int, z float32) {
	img.data[4*(y*img.w+x)] = clamp01(z)
}

// texel fetches with the wrap mode applied. Out of range coordinates of a
// clamp-to-border image read the border color.
func (img *image) texel(x, y int) mgl32.Vec4 {
	switch img.wrap {
	case gpu.WrapRepeat:
		x = mod(x, img.w)
		y = mod(y, img.h)
	case gpu.WrapClampToBorder:
		if !img.inside(x, y) {
			return img.border
		}
	default:
		x = clampInt(x, 0, img.w-1)
		y = clampInt(y, 0, img.h-1)
	}
	return img.at(x, y)
}

// sample reads the image at normalized coordinates the way texture() does
// for a 2D texture without mipmaps.
func (img *image) sample(u, v float32) mgl32.Vec4 {
	if img.w == 0 || img.h == 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	fx := u * float32(img.w)
	fy := v * float32(img.h)
	if img.filter == gpu.FilterNearest {
		return img.texel(int(math32.Floor(fx)), int(math32.Floor(fy)))
	}
	fx -= 0.5
	fy -= 0.5
	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	ax := fx - x0
	ay := fy - y0
	ix, iy := int(x0), int(y0)
	t00 := img.texel(ix, iy)
	t10 := img.texel(ix+1, iy)
	t01 := img.texel(ix, iy+1)
	t11 := img.texel(ix+1, iy+1)
	bottom := t00.Mul(1 - ax).Add(t10.Mul(ax))
	top := t01.Mul(1 - ax).Add(t11.Mul(ax))
	return bottom.Mul(1 - ay).Add(top.Mul(ay))
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(v, n int) int {
	if n == 0 {
		return 0
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
