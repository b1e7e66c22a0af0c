package constants

import "strings"

// MaxArtifactBytes is the per-file upload cap.
const MaxArtifactBytes = 10 << 20

// MaxBatchFiles bounds how many files one batch upload may carry.
const MaxBatchFiles = 5

// MaxConcurrentExtractions is the default ceiling for simultaneous extractions in a batch.
const MaxConcurrentExtractions = 5

// Media types accepted for extraction.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeGIF  = "image/gif"
	MediaTypeBMP  = "image/bmp"
	MediaTypeTIFF = "image/tiff"
)

// SupportedImageTypes lists the image media types routed to OCR, in advertised order.
var SupportedImageTypes = []string{
	MediaTypeJPEG,
	"image/jpg",
	MediaTypePNG,
	MediaTypeGIF,
	MediaTypeBMP,
	MediaTypeTIFF,
}

var mediaAliases = map[string]string{
	"image/jpg":      MediaTypeJPEG,
	"image/pjpeg":    MediaTypeJPEG,
	"image/x-png":    MediaTypePNG,
	"image/x-ms-bmp": MediaTypeBMP,
	"image/tif":      MediaTypeTIFF,
}

// extToMediaType maps normalized extensions to canonical media types.
var extToMediaType = map[string]string{
	"pdf":  MediaTypePDF,
	"jpg":  MediaTypeJPEG,
	"jpeg": MediaTypeJPEG,
	"png":  MediaTypePNG,
	"gif":  MediaTypeGIF,
	"bmp":  MediaTypeBMP,
	"tif":  MediaTypeTIFF,
	"tiff": MediaTypeTIFF,
}

var mediaTypeToExt = map[string]string{
	MediaTypePDF:  "pdf",
	MediaTypeJPEG: "jpg",
	MediaTypePNG:  "png",
	MediaTypeGIF:  "gif",
	MediaTypeBMP:  "bmp",
	MediaTypeTIFF: "tiff",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMediaType lowercases, drops parameters and resolves known aliases.
func NormalizeMediaType(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if canonical, ok := mediaAliases[mt]; ok {
		return canonical
	}
	return mt
}

// MediaTypeForExt returns the canonical media type for an extension, or "" when unknown.
func MediaTypeForExt(ext string) string {
	return extToMediaType[NormalizeExt(ext)]
}

// ExtForMediaType returns the file extension used when an artifact is written to disk.
func ExtForMediaType(mediaType string) string {
	if ext, ok := mediaTypeToExt[NormalizeMediaType(mediaType)]; ok {
		return ext
	}
	return "bin"
}

// IsPDF reports whether the media type is routed to the PDF engine.
func IsPDF(mediaType string) bool {
	return NormalizeMediaType(mediaType) == MediaTypePDF
}

// IsSupportedImage reports whether the media type is routed to OCR.
func IsSupportedImage(mediaType string) bool {
	switch NormalizeMediaType(mediaType) {
	case MediaTypeJPEG, MediaTypePNG, MediaTypeGIF, MediaTypeBMP, MediaTypeTIFF:
		return true
	}
	return false
}
