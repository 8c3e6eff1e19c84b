package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedFormat is returned for data URIs that are not JPEG or PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format, use JPEG or PNG")
	// ErrInvalidImage is returned when the payload is not a decodable image.
	ErrInvalidImage = errors.New("invalid image data")
	// ErrImageTooLarge is returned when the declared dimensions exceed MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions are too large")
)

// MaxPixels caps width*height of an upload before it is decoded.
const MaxPixels = 40_000_000

// Image is a decoded, normalised upload ready to be stored.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

// FileName returns a fresh object name under recipes/ for the image.
func (img *Image) FileName() string {
	return "recipes/" + uuid.New().String() + "." + img.Ext
}

// DecodeDataURI parses data:image/<fmt>;base64,<payload>. Images wider than
// maxWidth are scaled down preserving aspect ratio; maxWidth <= 0 disables scaling.
func DecodeDataURI(uri string, maxWidth int) (*Image, error) {
	header, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, ErrInvalidImage
	}

	var (
		img      = &Image{}
		format   imaging.Format
		detected string
	)
	switch strings.ToLower(strings.TrimPrefix(header, "data:image/")) {
	case "jpeg", "jpg":
		img.Ext, img.ContentType, format, detected = "jpg", "image/jpeg", imaging.JPEG, "jpeg"
	case "png":
		img.Ext, img.ContentType, format, detected = "png", "image/png", imaging.PNG, "png"
	default:
		return nil, ErrUnsupportedFormat
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	// The payload must really be the declared format, and small enough to decode.
	cfg, actual, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if actual != detected {
		return nil, fmt.Errorf("%w: payload is %s", ErrUnsupportedFormat, actual)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrImageTooLarge
	}

	decoded, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		img.Data = raw
		return img, nil
	}

	resized := imaging.Resize(decoded, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to re-encode resized image: %w", err)
	}
	img.Data = buf.Bytes()
	return img, nil
}
