package constants

import "strings"

// Platform is the publishing target an analysis is tuned for.
type Platform string

const (
	PlatformGeneral   Platform = "general"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// DefaultContentType is used when a caller does not name one.
const DefaultContentType = "social-media"

var allPlatforms = []Platform{
	PlatformGeneral,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformFacebook,
}

// Platforms returns the known platforms as strings.
func Platforms() []string {
	result := make([]string, len(allPlatforms))
	for i, p := range allPlatforms {
		result[i] = string(p)
	}
	return result
}

// CanonicalizePlatform maps user input onto a known platform.
// Unknown values are returned trimmed with ok=false; empty input means general.
func CanonicalizePlatform(input string) (Platform, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return PlatformGeneral, true
	}

	normalized := strings.ToLower(trimmed)

	synonyms := map[string]Platform{
		"x":         PlatformTwitter,
		"x.com":     PlatformTwitter,
		"tweet":     PlatformTwitter,
		"fb":        PlatformFacebook,
		"meta":      PlatformFacebook,
		"ig":        PlatformInstagram,
		"insta":     PlatformInstagram,
		"linked-in": PlatformLinkedIn,
		"li":        PlatformLinkedIn,
		"all":       PlatformGeneral,
		"any":       PlatformGeneral,
	}
	if p, ok := synonyms[normalized]; ok {
		return p, true
	}

	for _, p := range allPlatforms {
		if normalized == string(p) {
			return p, true
		}
	}
	return Platform(trimmed), false
}
