// Package caption turns loosely typed caption settings into a normalized
// Options value and renders the Gemini system instruction from it.
//
// Normalization never fails. Values the package does not recognize degrade
// to defaults: an unknown length becomes medium, an empty mood lets the
// image decide the tone, and anything other than true / "true" disables
// hashtags.
package caption

import "strings"

// Length selects the target word count of a caption.
type Length string

const (
	LengthShort    Length = "short"
	LengthOneLiner Length = "one-liner"
	LengthMedium   Length = "medium"
	LengthLengthy  Length = "lengthy"
)

// DefaultLength is used when the requested length is absent or unknown.
const DefaultLength = LengthMedium

// knownLengths maps every accepted literal to its Length. Lookups that miss
// fall back to DefaultLength.
var knownLengths = map[string]Length{
	string(LengthShort):    LengthShort,
	string(LengthOneLiner): LengthOneLiner,
	string(LengthMedium):   LengthMedium,
	string(LengthLengthy):  LengthLengthy,
}

// RawOptions holds caption settings as they arrive from a form, JSON body
// or CLI flag. IncludeHashtags is untyped because callers send either a
// bool or the string "true".
type RawOptions struct {
	Length            string `json:"captionLength"`
	Mood              string `json:"mood"`
	ExtraInstructions string `json:"extraInstructions"`
	IncludeHashtags   any    `json:"includeHashtags"`
}

// Options is the fully populated form of RawOptions.
type Options struct {
	Length            Length `json:"length"`
	Mood              string `json:"mood"`
	ExtraInstructions string `json:"extraInstructions"`
	IncludeHashtags   bool   `json:"includeHashtags"`
}

// Normalize fills in defaults and trims free-text fields.
func Normalize(raw RawOptions) Options {
	return Options{
		Length:            ParseLength(raw.Length),
		Mood:              strings.TrimSpace(raw.Mood),
		ExtraInstructions: strings.TrimSpace(raw.ExtraInstructions),
		IncludeHashtags:   IsAffirmative(raw.IncludeHashtags),
	}
}

// ParseLength matches s exactly against the known lengths. No trimming or
// case folding is applied.
func ParseLength(s string) Length {
	if l, ok := knownLengths[s]; ok {
		return l
	}
	return DefaultLength
}

// IsAffirmative reports whether v is the boolean true or the exact string
// "true". Every other value, including "TRUE", 1 and nil, is false.
func IsAffirmative(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}

// HasMood reports whether a mood was specified.
func (o Options) HasMood() bool {
	return o.Mood != ""
}

// HasSpecialRequest reports whether extra instructions were given.
func (o Options) HasSpecialRequest() bool {
	return o.ExtraInstructions != ""
}
