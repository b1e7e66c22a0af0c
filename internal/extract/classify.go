package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

// Classify resolves the artifact variant from its declared media type and size.
// Type is checked before size; neither check touches the bytes.
func Classify(mediaType string, size int64) (Kind, error) {
	mt := constants.NormalizeMediaType(mediaType)
	var kind Kind
	switch {
	case constants.IsPDF(mt):
		kind = KindPDF
	case constants.IsSupportedImage(mt):
		kind = KindImage
	default:
		shown := mediaType
		if strings.TrimSpace(shown) == "" {
			shown = "unknown"
		}
		return KindUnknown, common.NewValidationError(common.CodeUnsupportedMediaType,
			fmt.Sprintf("Invalid file type %s. Only PDF and image files (JPEG, PNG, GIF, BMP, TIFF) are allowed.", shown))
	}
	if size > constants.MaxArtifactBytes {
		return KindUnknown, common.NewValidationError(common.CodeArtifactTooLarge,
			fmt.Sprintf("File is too large (%d bytes). The limit is 10MB.", size))
	}
	return kind, nil
}

// Classify sets a.Kind, normalizing the media type on the way.
func (a *Artifact) Classify() error {
	size := max(a.Size, int64(len(a.Data)))
	kind, err := Classify(a.MediaType, size)
	if err != nil {
		return err
	}
	a.MediaType = constants.NormalizeMediaType(a.MediaType)
	a.Size = size
	a.Kind = kind
	return nil
}
