package textstats

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minLanguageSample is the shortest text worth running detection on.
const minLanguageSample = 20

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// languages the detector is built for; the model set is kept small to bound memory.
var detectableLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
}

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectableLanguages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// DetectLanguage returns the lowercase ISO 639-1 code of the text's language,
// or "" when the text is too short or detection is not confident.
func DetectLanguage(s string) string {
	s = strings.TrimSpace(s)
	if CharCount(s) < minLanguageSample {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(s)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
