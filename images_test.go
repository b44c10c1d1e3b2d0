package quill

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImportImageResizesWideImages(t *testing.T) {
	dir := t.TempDir()
	img, err := ImportImage(bytes.NewReader(testPNG(t, 1600, 400)), "My Photo.PNG", dir)
	require.NoError(t, err)

	assert.Equal(t, "my-photo.jpg", img.Filename)
	assert.Equal(t, "/public/uploads/my-photo.jpg", img.Path)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 200, img.Height)
	assert.Equal(t, "![cat](/public/uploads/my-photo.jpg)", img.Markdown("cat"))

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "my-photo.jpg"))
	require.NoError(t, err)
	assert.Len(t, data, img.Size)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
}

func TestImportImageKeepsSmallImagesAndAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	src := testPNG(t, 100, 50)

	first, err := ImportImage(bytes.NewReader(src), "pic.png", dir)
	require.NoError(t, err)
	second, err := ImportImage(bytes.NewReader(src), "pic.png", dir)
	require.NoError(t, err)

	assert.Equal(t, "pic.jpg", first.Filename)
	assert.Equal(t, "pic-2.jpg", second.Filename)
	assert.Equal(t, 100, second.Width)
	assert.Equal(t, 50, second.Height)
}

func TestImportImageRejectsNonImages(t *testing.T) {
	_, err := ImportImage(strings.NewReader("not an image"), "x.png", t.TempDir())
	assert.ErrorContains(t, err, "decode image")
}
