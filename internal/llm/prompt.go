package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

const (
	// MaxFullChars and MaxQuickChars cap the analysed text, counted in characters.
	MaxFullChars  = 4000
	MaxQuickChars = 2000

	// TruncationMarker is appended to truncated text.
	TruncationMarker = "…"
)

const fullSystem = "You are a social media content optimization expert with deep knowledge of engagement strategies across all major platforms. Provide practical, data-driven advice."

const quickSystem = "You are a social media expert. Provide quick, actionable feedback."

const tipsSystem = "You are a social media marketing expert."

const fullShape = `{
  "contentAnalysis": {
    "tone": "string (e.g., professional, casual, friendly, authoritative)",
    "sentiment": "string (positive, negative, neutral, mixed)",
    "readability": "string (easy, moderate, difficult)",
    "wordCount": number,
    "estimatedReadTime": "string (e.g., '2 minutes')",
    "keyTopics": ["array of main topics"],
    "targetAudience": "string (who this content is best suited for)"
  },
  "engagementMetrics": {
    "attentionGrabber": "score 1-10 with explanation",
    "clarity": "score 1-10 with explanation",
    "callToAction": "score 1-10 with explanation",
    "relevance": "score 1-10 with explanation",
    "overallEngagement": "score 1-10 with explanation"
  },
  "improvementSuggestions": {
    "headline": ["array of headline suggestions"],
    "content": ["array of content improvement suggestions"],
    "hashtags": ["array of relevant hashtag suggestions"],
    "visualElements": ["array of visual enhancement suggestions"],
    "timing": "string (best time to post suggestions)",
    "platformSpecific": {
      "twitter": ["array of Twitter-specific suggestions"],
      "linkedin": ["array of LinkedIn-specific suggestions"],
      "instagram": ["array of Instagram-specific suggestions"],
      "facebook": ["array of Facebook-specific suggestions"]
    }
  },
  "bestPractices": {
    "dos": ["array of recommended actions"],
    "donts": ["array of actions to avoid"],
    "trendingTopics": ["array of current trending topics to consider"]
  }
}`

const quickShape = `{
  "sentiment": "positive/negative/neutral",
  "engagementScore": "1-10",
  "topSuggestion": "single most important improvement",
  "hashtagSuggestion": "3-5 relevant hashtags"
}`

const tipsShape = `{
  "tips": [
    {
      "title": "string",
      "description": "string",
      "platform": "string (general/twitter/linkedin/instagram/facebook)"
    }
  ]
}`

// BuildRequest validates and bounds the text, then renders the prompt for mode.
// Empty content fails before anything touches the network.
func BuildRequest(text, contentType, platform string, mode constants.AnalysisMode) (AnalysisRequest, error) {
	if strings.TrimSpace(text) == "" {
		return AnalysisRequest{}, common.NewValidationError(common.CodeEmptyContent, "Text content is required")
	}
	if mode == "" {
		mode = constants.ModeFull
	}
	if mode != constants.ModeFull && mode != constants.ModeQuick {
		return AnalysisRequest{}, common.NewValidationError(common.CodeInvalidRequest,
			fmt.Sprintf("mode must be %q or %q", constants.ModeFull, constants.ModeQuick))
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = constants.DefaultContentType
	}
	p, _ := constants.CanonicalizePlatform(platform)

	limit := MaxFullChars
	if mode == constants.ModeQuick {
		limit = MaxQuickChars
	}
	bounded, truncated := Truncate(text, limit)

	req := AnalysisRequest{
		Text:           bounded,
		ContentType:    contentType,
		Platform:       string(p),
		Mode:           mode,
		WasTruncated:   truncated,
		OriginalLength: utf8.RuneCountInString(text),
	}
	if mode == constants.ModeQuick {
		req.Prompt = quickPrompt(bounded)
	} else {
		req.Prompt = fullPrompt(bounded, contentType, string(p))
	}
	return req, nil
}

// Truncate keeps the first limit characters and appends TruncationMarker when text is longer.
func Truncate(text string, limit int) (string, bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i] + TruncationMarker, true
		}
		n++
	}
	return text, false
}

func fullPrompt(text, contentType, platform string) string {
	var b strings.Builder
	b.WriteString(fullSystem)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Analyze the following %s content and provide comprehensive engagement improvement suggestions:\n\n", contentType)
	fmt.Fprintf(&b, "Content: \"%s\"\n\n", text)
	if platform != "" && platform != string(constants.PlatformGeneral) {
		fmt.Fprintf(&b, "Target platform: %s. Weight platform-specific suggestions toward it.\n\n", platform)
	}
	b.WriteString("Please provide analysis in the following JSON format:\n")
	b.WriteString(fullShape)
	b.WriteString("\n\nFocus on practical, actionable advice that can immediately improve engagement rates.\n")
	return b.String()
}

func quickPrompt(text string) string {
	var b strings.Builder
	b.WriteString(quickSystem)
	b.WriteString("\n\n")
	b.WriteString("Provide a quick analysis of this social media content in JSON format:\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", text)
	b.WriteString("Return only this JSON structure:\n")
	b.WriteString(quickShape)
	b.WriteString("\n")
	return b.String()
}

// TipsPrompt asks for ten general engagement tips.
func TipsPrompt() string {
	return tipsSystem + "\n\nProvide 10 essential social media engagement tips in JSON format:\n" + tipsShape + "\n"
}
