// Package imaging normalizes uploaded avatar images.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	AvatarMaxSize = 800
	JPEGQuality   = 82
	WebPQuality   = 70
)

// Input is a raw uploaded file.
type Input struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Avatar is a square, size-capped avatar in both delivery encodings.
type Avatar struct {
	JPEG   []byte
	WebP   []byte
	Width  int
	Height int
}

// Processor turns uploads into avatars.
type Processor struct {
	maxBytes int64
}

// NewProcessor returns a Processor rejecting files larger than maxUploadMB.
func NewProcessor(maxUploadMB int) *Processor {
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &Processor{maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// Normalize validates the upload, center-crops it square, caps it at AvatarMaxSize
// and encodes it as JPEG and WebP.
func (p *Processor) Normalize(in Input) (*Avatar, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > p.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", p.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	sourceMime := decodedFormatToMime(format)
	if sourceMime == "" {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMime) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	b := decoded.Bounds()
	x, y, side := squareCrop(b.Dx(), b.Dy())
	cropped := cropToRect(decoded, b.Min.X+x, b.Min.Y+y, side, side)
	out := resizeToFit(cropped, AvatarMaxSize)

	jpg, err := encodeJPEG(out, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	wp, err := encodeWebP(out, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &Avatar{
		JPEG:   jpg,
		WebP:   wp,
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}, nil
}

func squareCrop(w, h int) (x, y, side int) {
	if w <= h {
		return 0, (h - w) / 2, w
	}
	return (w - h) / 2, 0, h
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxSide int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSide && h <= maxSide {
		return src
	}

	scale := float64(maxSide) / float64(max(w, h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	return p == d || (p == "image/jpg" && d == "image/jpeg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
