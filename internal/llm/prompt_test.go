package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

func TestBuildRequestEmptyContent(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t "} {
		_, err := BuildRequest(in, "", "", constants.ModeFull)
		if common.CodeOf(err) != common.CodeEmptyContent {
			t.Errorf("BuildRequest(%q) err = %v, want %s", in, err, common.CodeEmptyContent)
		}
	}
}

func TestBuildRequestTruncation(t *testing.T) {
	cases := []struct {
		name      string
		length    int
		mode      constants.AnalysisMode
		truncated bool
		wantLen   int
	}{
		{"short full", 100, constants.ModeFull, false, 100},
		{"exact full", 4000, constants.ModeFull, false, 4000},
		{"long full", 4001, constants.ModeFull, true, 4001},
		{"very long full", 9000, constants.ModeFull, true, 4001},
		{"long quick", 2500, constants.ModeQuick, true, 2001},
		{"exact quick", 2000, constants.ModeQuick, false, 2000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := strings.Repeat("é", tc.length)
			req, err := BuildRequest(text, "", "", tc.mode)
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}
			if req.WasTruncated != tc.truncated {
				t.Errorf("WasTruncated = %v, want %v", req.WasTruncated, tc.truncated)
			}
			if got := utf8.RuneCountInString(req.Text); got != tc.wantLen {
				t.Errorf("len(Text) = %d, want %d", got, tc.wantLen)
			}
			if tc.truncated && !strings.HasSuffix(req.Text, TruncationMarker) {
				t.Error("truncated text lacks marker")
			}
			if !tc.truncated && req.Text != text {
				t.Error("untruncated text was changed")
			}
			if req.OriginalLength != tc.length {
				t.Errorf("OriginalLength = %d, want %d", req.OriginalLength, tc.length)
			}
		})
	}
}

func TestBuildRequestDefaultsAndPrompt(t *testing.T) {
	req, err := BuildRequest("Launching our new app today!", "", "", "")
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.ContentType != "social-media" || req.Platform != "general" || req.Mode != constants.ModeFull {
		t.Errorf("defaults = %q %q %q", req.ContentType, req.Platform, req.Mode)
	}
	if !strings.HasPrefix(req.Prompt, "You are a social media content optimization expert") {
		t.Errorf("prompt starts with %q", req.Prompt[:40])
	}
	for _, want := range []string{
		"Analyze the following social-media content",
		`Content: "Launching our new app today!"`,
		`"platformSpecific"`,
		"Focus on practical, actionable advice",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(req.Prompt, "Target platform") {
		t.Error("general platform should not add a platform line")
	}
}

func TestPromptEmbedsTextVerbatim(t *testing.T) {
	text := "Line one\nShe said \"hi\"\ttabbed"
	for _, mode := range []constants.AnalysisMode{constants.ModeFull, constants.ModeQuick} {
		req, err := BuildRequest(text, "", "", mode)
		if err != nil {
			t.Fatalf("BuildRequest(%s): %v", mode, err)
		}
		if !strings.Contains(req.Prompt, `"`+text+`"`) {
			t.Errorf("%s prompt does not carry the text verbatim:\n%s", mode, req.Prompt)
		}
		if strings.Contains(req.Prompt, `\n`) || strings.Contains(req.Prompt, `\"`) {
			t.Errorf("%s prompt contains escape sequences", mode)
		}
	}
}

func TestBuildRequestPlatformAndQuick(t *testing.T) {
	req, err := BuildRequest("hello", "blog-post", "X", constants.ModeFull)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.Platform != "twitter" {
		t.Errorf("Platform = %q, want twitter", req.Platform)
	}
	if !strings.Contains(req.Prompt, "Target platform: twitter") {
		t.Error("prompt missing platform line")
	}

	quick, err := BuildRequest("hello", "", "", constants.ModeQuick)
	if err != nil {
		t.Fatalf("BuildRequest quick: %v", err)
	}
	if !strings.HasPrefix(quick.Prompt, "You are a social media expert.") {
		t.Errorf("quick prompt = %q", quick.Prompt)
	}
	if !strings.Contains(quick.Prompt, `"hashtagSuggestion"`) || strings.Contains(quick.Prompt, "contentAnalysis") {
		t.Error("quick prompt should request only the reduced shape")
	}

	if _, err := BuildRequest("hello", "", "", "deep"); common.CodeOf(err) != common.CodeInvalidRequest {
		t.Errorf("unknown mode err = %v", err)
	}
}

func TestTipsPrompt(t *testing.T) {
	p := TipsPrompt()
	if !strings.HasPrefix(p, "You are a social media marketing expert.") || !strings.Contains(p, `"tips"`) {
		t.Errorf("TipsPrompt = %q", p)
	}
}
