package caption

import (
	"strings"
	"testing"
)

func TestLengthDirectiveInPrompt(t *testing.T) {
	tests := []struct {
		length Length
		want   string
	}{
		{LengthShort, "Very concise (5-10 words)"},
		{LengthOneLiner, "Single line, punchy (5-15 words)"},
		{LengthMedium, "Medium (15-25 words) - balanced personal expression"},
		{LengthLengthy, "Detailed (25-40 words)"},
		{Length(""), "Medium (15-25 words)"},
		{Length("saga"), "Medium (15-25 words)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.length), func(t *testing.T) {
			prompt := BuildSystemInstruction(Options{Length: tt.length})
			if !strings.Contains(prompt, "LENGTH: "+tt.want) {
				t.Errorf("prompt for length %q missing %q", tt.length, tt.want)
			}
		})
	}
}

func TestUnknownLengthUsesGenericMediumWording(t *testing.T) {
	prompt := BuildSystemInstruction(Options{Length: "saga"})
	if !strings.Contains(prompt, "LENGTH: Medium (15-25 words) - natural personal expression\n") {
		t.Error("expected fallback medium directive")
	}
}

func TestNormalizedUnknownLengthIsMedium(t *testing.T) {
	prompt := BuildSystemInstruction(Normalize(RawOptions{Length: "saga"}))
	if !strings.Contains(prompt, "LENGTH: Medium (15-25 words)") {
		t.Error("expected medium directive after normalization")
	}
}

func TestMoodDirective(t *testing.T) {
	tests := []struct {
		mood string
		want string
	}{
		{"Funny", "MOOD: Write with a funny tone that feels genuine and personal"},
		{"  NOSTALGIC  ", "MOOD: Write with a nostalgic tone that feels genuine and personal"},
		{"", "MOOD: Let the image guide the emotion"},
		{" \t ", "MOOD: Let the image guide the emotion"},
	}

	for _, tt := range tests {
		prompt := BuildSystemInstruction(Options{Length: LengthMedium, Mood: tt.mood})
		if !strings.Contains(prompt, tt.want) {
			t.Errorf("mood %q: prompt missing %q", tt.mood, tt.want)
		}
	}
}

func TestHashtagDirective(t *testing.T) {
	for _, v := range []any{true, "true"} {
		prompt := BuildSystemInstruction(Normalize(RawOptions{IncludeHashtags: v}))
		if !strings.Contains(prompt, "Include 2-4 relevant hashtags") {
			t.Errorf("includeHashtags=%#v: expected hashtag directive", v)
		}
	}

	for _, v := range []any{false, "false", nil, 1, "yes"} {
		prompt := BuildSystemInstruction(Normalize(RawOptions{IncludeHashtags: v}))
		if !strings.Contains(prompt, "HASHTAGS: No hashtags\n") {
			t.Errorf("includeHashtags=%#v: expected no-hashtags directive", v)
		}
		if strings.Contains(prompt, "Include 2-4") {
			t.Errorf("includeHashtags=%#v: unexpected hashtag directive", v)
		}
	}
}

func TestSpecialRequest(t *testing.T) {
	prompt := BuildSystemInstruction(Normalize(RawOptions{ExtraInstructions: "  mention the beach  "}))
	want := "SPECIAL REQUEST: mention the beach (while keeping it first-person and authentic)\n"
	if !strings.Contains(prompt, want) {
		t.Errorf("prompt missing %q", want)
	}

	prompt = BuildSystemInstruction(Normalize(RawOptions{ExtraInstructions: "   "}))
	if strings.Contains(prompt, "SPECIAL REQUEST") {
		t.Error("blank extra instructions should not add a special request")
	}
}

func TestScenarioShortNoExtras(t *testing.T) {
	prompt := BuildSystemInstruction(Normalize(RawOptions{
		Length:          "short",
		IncludeHashtags: false,
	}))

	for _, want := range []string{"Very concise (5-10 words)", "No hashtags"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "SPECIAL REQUEST") {
		t.Error("prompt should not contain SPECIAL REQUEST")
	}
}

func TestScenarioLengthyFunnyCoffee(t *testing.T) {
	prompt := BuildSystemInstruction(Normalize(RawOptions{
		Length:            "lengthy",
		Mood:              "Funny",
		ExtraInstructions: "mention coffee",
		IncludeHashtags:   "true",
	}))

	for _, want := range []string{
		"Detailed (25-40 words)",
		"funny tone",
		"Include 2-4 relevant hashtags",
		"SPECIAL REQUEST: mention coffee",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDirectiveOrder(t *testing.T) {
	prompt := BuildSystemInstruction(Normalize(RawOptions{
		Length:            "short",
		Mood:              "calm",
		ExtraInstructions: "say hi",
		IncludeHashtags:   true,
	}))

	markers := []string{"CRITICAL GUIDELINES:", "LENGTH:", "MOOD:", "HASHTAGS:", "SPECIAL REQUEST:", "WRITING STYLE:", "EXAMPLES OF GOOD", "AVOID:"}
	last := -1
	for _, m := range markers {
		i := strings.Index(prompt, m)
		if i < 0 {
			t.Fatalf("prompt missing %q", m)
		}
		if i <= last {
			t.Errorf("%q out of order", m)
		}
		last = i
	}

	if !strings.HasSuffix(prompt, "- Overly polished or corporate language") {
		t.Error("prompt should end with the avoid list and no trailing newline")
	}
}

func TestBuildSystemInstructionIsDeterministic(t *testing.T) {
	opts := Normalize(RawOptions{Length: "one-liner", Mood: "Proud", IncludeHashtags: "true"})
	a := BuildSystemInstruction(opts)
	b := BuildSystemInstruction(opts)
	if a != b {
		t.Error("identical options produced different prompts")
	}
}
