package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCropTopTallImage(t *testing.T) {
	data := encodeTestPNG(t, 40, 300)

	out, err := CropTop(data, 100)
	if err != nil {
		t.Fatalf("CropTop() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Decode cropped: %v", err)
	}
	if got := img.Bounds().Dy(); got != 100 {
		t.Errorf("Cropped height = %d, want 100", got)
	}
	if got := img.Bounds().Dx(); got != 40 {
		t.Errorf("Cropped width = %d, want 40", got)
	}
}

func TestCropTopShortImageUnchanged(t *testing.T) {
	data := encodeTestPNG(t, 40, 80)

	out, err := CropTop(data, 100)
	if err != nil {
		t.Fatalf("CropTop() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Expected image within limit to be returned unchanged")
	}
}

func TestCropTopZeroLimitDisablesCrop(t *testing.T) {
	data := encodeTestPNG(t, 10, 500)

	out, err := CropTop(data, 0)
	if err != nil {
		t.Fatalf("CropTop() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Expected zero limit to pass the image through")
	}
}

func TestCropTopInvalidData(t *testing.T) {
	if _, err := CropTop([]byte("not a png"), 100); err == nil {
		t.Error("Expected error for invalid PNG data")
	}
}
