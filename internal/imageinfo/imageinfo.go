// Package imageinfo inspects an uploaded image before it is captioned:
// it settles the MIME type, reads pixel dimensions and pulls a little EXIF
// (camera, capture time) when the format carries it.
//
// Dimensions come from image.DecodeConfig, so only the header is parsed.
// JPEG, PNG and GIF use the standard library decoders; WebP, BMP and TIFF
// are registered from golang.org/x/image. HEIC/HEIF cannot be decoded here
// and pass through with zero dimensions.
package imageinfo

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // register GIF decoder for image.DecodeConfig
	_ "image/jpeg" // register JPEG decoder for image.DecodeConfig
	_ "image/png"  // register PNG decoder for image.DecodeConfig
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrNotImage is returned when the payload is not an image.
var ErrNotImage = errors.New("file is not an image")

// passthroughTypes are image types the sniffer does not recognize but that
// are accepted on the client's word.
var passthroughTypes = map[string]bool{
	"image/heic": true,
	"image/heif": true,
}

// extensionTypes covers extensions the mime package does not know.
var extensionTypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
}

// exifTypes are the formats worth handing to imagemeta.
var exifTypes = map[string]bool{
	"image/jpeg": true,
	"image/tiff": true,
	"image/heic": true,
	"image/heif": true,
}

// Info describes an uploaded image.
type Info struct {
	MIMEType    string
	Width       int
	Height      int
	CameraMake  string
	CameraModel string
	TakenAt     time.Time
}

// Inspect sniffs data and returns its Info. declared is the client-supplied
// content type and is only trusted for formats the sniffer cannot identify.
func Inspect(data []byte, declared string) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrNotImage
	}

	mimeType := DetectMIMEType(data, declared)
	if mimeType == "" {
		return Info{}, ErrNotImage
	}
	info := Info{MIMEType: mimeType}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width = cfg.Width
		info.Height = cfg.Height
	} else {
		log.Debug().Err(err).Str("mime_type", mimeType).Msg("Could not read image dimensions")
	}

	if exifTypes[mimeType] {
		readEXIF(data, &info)
	}

	return info, nil
}

// DetectMIMEType returns the image MIME type of data, or "" when data is
// not an image.
func DetectMIMEType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if passthroughTypes[declared] {
		return declared
	}
	return ""
}

// TypeForPath guesses a declared MIME type from a file name, for callers
// that read from disk and have no Content-Type header. It returns "" when
// the extension is unknown.
func TypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return t
}

// readEXIF fills camera and capture time. Missing or corrupt EXIF is not
// an error.
func readEXIF(data []byte, info *Info) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata")
		return
	}

	info.CameraMake = strings.TrimSpace(exifData.Make)
	info.CameraModel = strings.TrimSpace(exifData.Model)

	// DateTimeOriginal > CreateDate
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		info.TakenAt = t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		info.TakenAt = t
	}
}
