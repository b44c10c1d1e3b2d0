package quill

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxImageSize  = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// Image describes a JPEG written under the static uploads directory.
type Image struct {
	Filename string
	Path     string // site-relative URL, e.g. /public/uploads/cat.jpg
	Width    int
	Height   int
	Size     int
}

// Markdown returns the image reference to paste into a post body.
func (img Image) Markdown(alt string) string {
	return "![" + alt + "](" + img.Path + ")"
}

// processImage decodes an image from src, shrinks it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader) (image.Image, []byte, error) {
	img, _, err := image.Decode(io.LimitReader(src, maxImageSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if w, h := bounds.Dx(), bounds.Dy(); w > maxImageWidth {
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, h*maxImageWidth/w))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return img, buf.Bytes(), nil
}

// ImportImage converts the image read from src to JPEG and writes it to
// staticDir/uploads under a slug of originalName, suffixing -2, -3, ...
// when the name is taken.
func ImportImage(src io.Reader, originalName, staticDir string) (Image, error) {
	img, data, err := processImage(src)
	if err != nil {
		return Image{}, err
	}
	dir := filepath.Join(staticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Image{}, fmt.Errorf("create uploads dir: %w", err)
	}

	base := Slugify(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	filename := base + ".jpg"
	for n := 2; ; n++ {
		f, err := os.OpenFile(filepath.Join(dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			filename = fmt.Sprintf("%s-%d.jpg", base, n)
			continue
		}
		if err != nil {
			return Image{}, fmt.Errorf("create image: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return Image{}, fmt.Errorf("write image: %w", err)
		}
		if err := f.Close(); err != nil {
			return Image{}, err
		}
		break
	}

	b := img.Bounds()
	return Image{
		Filename: filename,
		Path:     "/public/" + uploadsSubdir + "/" + filename,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Size:     len(data),
	}, nil
}
