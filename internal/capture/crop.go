package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// CropTop returns the topmost maxHeight pixels of a PNG screenshot,
// re-encoded. Full-page captures of long product listings can run tens of
// thousands of pixels tall; pricing sits above the fold, and oversized
// payloads get rejected by vision endpoints. Images already within the limit
// are returned unchanged.
func CropTop(data []byte, maxHeight int) ([]byte, error) {
	if maxHeight <= 0 {
		return data, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dy() <= maxHeight {
		return data, nil
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return data, nil
	}

	cropped := sub.SubImage(image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+maxHeight))

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("encode cropped screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
