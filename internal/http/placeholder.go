package http

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	placeholderOnce sync.Once
	placeholderData []byte
)

// placeholderThumbnail renders the built-in fallback thumbnail: a flat
// neutral-gray square, encoded once and reused for every request.
func placeholderThumbnail() []byte {
	placeholderOnce.Do(func() {
		const size = 256
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		gray := color.RGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				img.Set(x, y, gray)
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			panic(err)
		}
		placeholderData = buf.Bytes()
	})
	return placeholderData
}
