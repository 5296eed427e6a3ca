package caption

import "testing"

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want Length
	}{
		{"short", LengthShort},
		{"one-liner", LengthOneLiner},
		{"medium", LengthMedium},
		{"lengthy", LengthLengthy},
		{"", LengthMedium},
		{"Short", LengthMedium},
		{" short", LengthMedium},
		{"epic", LengthMedium},
	}

	for _, tt := range tests {
		if got := ParseLength(tt.in); got != tt.want {
			t.Errorf("ParseLength(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"string true", "true", true},
		{"bool false", false, false},
		{"string false", "false", false},
		{"nil", nil, false},
		{"int one", 1, false},
		{"upper TRUE", "TRUE", false},
		{"padded true", " true", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAffirmative(tt.in); got != tt.want {
				t.Errorf("IsAffirmative(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTrimsFreeText(t *testing.T) {
	got := Normalize(RawOptions{
		Length:            "lengthy",
		Mood:              "  Funny \t",
		ExtraInstructions: "\n mention coffee  ",
		IncludeHashtags:   "true",
	})

	want := Options{
		Length:            LengthLengthy,
		Mood:              "Funny",
		ExtraInstructions: "mention coffee",
		IncludeHashtags:   true,
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeZeroValue(t *testing.T) {
	got := Normalize(RawOptions{})

	if got.Length != LengthMedium {
		t.Errorf("expected default length medium, got %q", got.Length)
	}
	if got.HasMood() {
		t.Errorf("expected no mood, got %q", got.Mood)
	}
	if got.HasSpecialRequest() {
		t.Errorf("expected no special request, got %q", got.ExtraInstructions)
	}
	if got.IncludeHashtags {
		t.Error("expected hashtags off for nil input")
	}
}

func TestNormalizeWhitespaceMood(t *testing.T) {
	got := Normalize(RawOptions{Mood: "   ", ExtraInstructions: "\t"})
	if got.HasMood() || got.HasSpecialRequest() {
		t.Errorf("whitespace-only fields should be empty, got %+v", got)
	}
}
