package llm

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```JSON\r\n{\"a\":1}\r\n```  ", `{"a":1}`},
		{"```json{\"a\":1}```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"code\":\"x```y\"}\n```", "{\"code\":\"x```y\"}"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := StripFences(tc.in); got != tc.want {
			t.Errorf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFencedScenario(t *testing.T) {
	rec := Normalize("```json\n{\"contentAnalysis\":{\"tone\":\"casual\"}}\n```", constants.ModeFull)
	if rec.IsFallback() {
		t.Fatalf("record fell back: %+v", rec.RawFallback)
	}
	var ca struct {
		Tone string `json:"tone"`
	}
	if err := json.Unmarshal(rec.ContentAnalysis, &ca); err != nil {
		t.Fatalf("unmarshal contentAnalysis: %v", err)
	}
	if ca.Tone != "casual" {
		t.Errorf("tone = %q, want casual", ca.Tone)
	}
	if rec.EngagementMetrics != nil || rec.ImprovementSuggestions != nil || rec.BestPractices != nil {
		t.Error("absent sections were synthesized")
	}
	if got := len(rec.Fields()); got != 1 {
		t.Errorf("len(Fields) = %d, want 1", got)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	docs := []string{
		`{"contentAnalysis":{"tone":"pro","keyTopics":["a","b"],"wordCount":12},"engagementMetrics":{"clarity":"7 - clear"},"improvementSuggestions":{"platformSpecific":{"twitter":["short"]}},"bestPractices":{"dos":["post daily"],"donts":[]}}`,
		`{"bestPractices":{"dos":[]},"extra":true}`,
	}
	for _, doc := range docs {
		for _, wrapped := range []string{doc, "```json\n" + doc + "\n```", "```\n" + doc + "```"} {
			rec := Normalize(wrapped, constants.ModeFull)
			if rec.IsFallback() {
				t.Fatalf("Normalize(%q) fell back", wrapped)
			}
			var orig map[string]any
			if err := json.Unmarshal([]byte(doc), &orig); err != nil {
				t.Fatal(err)
			}
			out, err := json.Marshal(rec)
			if err != nil {
				t.Fatal(err)
			}
			var got map[string]any
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatal(err)
			}
			for _, k := range RecognizedKeys(constants.ModeFull) {
				if !reflect.DeepEqual(got[k], orig[k]) {
					t.Errorf("key %s = %v, want %v", k, got[k], orig[k])
				}
			}
			if _, ok := got["extra"]; ok {
				t.Error("unrecognized key copied into record")
			}
		}
	}
}

func TestNormalizeNonJSON(t *testing.T) {
	inputs := []string{
		"Here are some tips: post more often.",
		"```json\n{\"contentAnalysis\": {\"tone\": \n```",
		"{'single': 'quotes'}",
		"",
	}
	for _, in := range inputs {
		rec := Normalize(in, constants.ModeFull)
		if rec.RawFallback == nil {
			t.Fatalf("Normalize(%q) has no fallback", in)
		}
		if rec.RawFallback.Text != in {
			t.Errorf("fallback text = %q, want %q", rec.RawFallback.Text, in)
		}
		if !rec.RawFallback.ParseFailed {
			t.Errorf("ParseFailed = false for %q", in)
		}
		if len(rec.Fields()) != 0 {
			t.Errorf("structured fields populated for %q", in)
		}
	}
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	raw := "```json\n{\"analysis\": {\"tone\": \"casual\"}}\n```"
	rec := Normalize(raw, constants.ModeFull)
	if rec.RawFallback == nil {
		t.Fatal("expected opaque fallback")
	}
	if rec.RawFallback.ParseFailed {
		t.Error("ParseFailed = true for valid JSON")
	}
	if string(rec.RawFallback.Parsed) != `{"analysis":{"tone":"casual"}}` {
		t.Errorf("Parsed = %s", rec.RawFallback.Parsed)
	}
	if rec.RawFallback.Text != raw {
		t.Errorf("Text = %q, want raw input", rec.RawFallback.Text)
	}

	arr := Normalize(`[1,2,3]`, constants.ModeFull)
	if arr.RawFallback == nil || arr.RawFallback.ParseFailed || string(arr.RawFallback.Parsed) != `[1,2,3]` {
		t.Errorf("array fallback = %+v", arr.RawFallback)
	}
}

func TestNormalizeQuickKeys(t *testing.T) {
	raw := `{"sentiment":"positive","engagementScore":"8","topSuggestion":"Add a CTA","hashtagSuggestion":"#a #b #c"}`
	rec := Normalize(raw, constants.ModeQuick)
	if rec.IsFallback() {
		t.Fatal("quick record fell back")
	}
	if string(rec.EngagementScore) != `"8"` {
		t.Errorf("EngagementScore = %s", rec.EngagementScore)
	}

	full := Normalize(raw, constants.ModeFull)
	if full.RawFallback == nil {
		t.Error("quick keys should not satisfy full mode")
	}
}

func TestNormalizeLoose(t *testing.T) {
	if got := string(NormalizeLoose("```json\n{\"tips\": [ ]}\n```", "rawTips")); got != `{"tips":[]}` {
		t.Errorf("NormalizeLoose json = %s", got)
	}
	got := NormalizeLoose("not json", "rawTips")
	var m map[string]string
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["rawTips"] != "not json" {
		t.Errorf("fallback = %v", m)
	}
}

func TestValidateRecord(t *testing.T) {
	good := Normalize(`{"contentAnalysis":{"tone":"casual","keyTopics":["x"]}}`, constants.ModeFull)
	if err := ValidateRecord(good, constants.ModeFull); err != nil {
		t.Errorf("ValidateRecord(good) = %v", err)
	}
	bad := Normalize(`{"contentAnalysis":"just a string"}`, constants.ModeFull)
	if err := ValidateRecord(bad, constants.ModeFull); err == nil {
		t.Error("ValidateRecord(bad) = nil, want schema error")
	}
	if err := ValidateRecord(Normalize("prose", constants.ModeFull), constants.ModeFull); err != nil {
		t.Errorf("fallback record = %v, want nil", err)
	}
	quick := Normalize(`{"engagementScore":7}`, constants.ModeQuick)
	if err := ValidateRecord(quick, constants.ModeQuick); err != nil {
		t.Errorf("ValidateRecord(quick) = %v", err)
	}
}
