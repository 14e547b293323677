package graphics

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"defview/internal/gpu"
)

// LoadTexture loads a 2D texture from a file
func LoadTexture(dev gpu.Device, path string) (gpu.Texture, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to open texture file: %v", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to decode image: %v", err)
	}
	tex, w, h := UploadImage(dev, img, gpu.FilterLinear, gpu.WrapRepeat)
	dev.Label(gpu.KindTexture, uint32(tex), filepath.Base(path))
	return tex, w, h, nil
}

// UploadImage converts img to RGBA8 and creates a texture from it. Image
// rows run top to bottom, texture rows bottom to top, so rows are flipped.
func UploadImage(dev gpu.Device, img image.Image, filter gpu.Filter, wrap gpu.Wrap) (gpu.Texture, int, int) {
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	pixels := make([]uint8, 0, len(rgba.Pix))
	for y := h - 1; y >= 0; y-- {
		pixels = append(pixels, rgba.Pix[y*rgba.Stride:y*rgba.Stride+4*w]...)
	}
	tex := dev.CreateTexture(gpu.TextureDesc{
		Width:  w,
		Height: h,
		Format: gpu.FormatRGBA8,
		Filter: filter,
		Wrap:   wrap,
		Pixels: pixels,
	})
	return tex, w, h
}

// ReadImage reads a region of the current read buffer into an image. The
// floats are clamped to [0,1] and rows flipped to top-down order.
func ReadImage(dev gpu.Device, r gpu.Rect) *image.NRGBA {
	px := dev.ReadPixels(r)
	img := image.NewNRGBA(image.Rect(0, 0, r.W, r.H))
	for y := 0; y < r.H; y++ {
		row := img.Pix[(r.H-1-y)*img.Stride:]
		for x := 0; x < r.W; x++ {
			for c := 0; c < 4; c++ {
				v := px[4*(y*r.W+x)+c]
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				row[4*x+c] = uint8(v*255 + 0.5)
			}
		}
	}
	return img
}

// EncodeImage writes img in the format named by ext (".png", ".jpg",
// ".bmp", ".tif" or ".tiff").
func EncodeImage(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}
}

// SaveScreenshot reads the default framebuffer and writes it to path.
func SaveScreenshot(dev gpu.Device, width, height int, path string) error {
	dev.BindFramebuffer(gpu.TargetRead, gpu.DefaultFramebuffer)
	dev.ReadBuffer(0)
	img := ReadImage(dev, gpu.Rect{W: width, H: height})
	// Screenshots are opaque.
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if err := EncodeImage(f, filepath.Ext(path), img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return f.Close()
}
