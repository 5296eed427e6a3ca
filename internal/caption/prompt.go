package caption

import (
	"fmt"
	"strings"

	"github.com/fpang/caption-studio/internal/assets"
)

// UserPrompt is the user turn sent next to the image.
const UserPrompt = "Write a caption for this image as if you're the person in the photo."

// Directive lines. Each one is terminated by a newline in the final prompt.
const (
	fallbackLengthDirective = "LENGTH: Medium (15-25 words) - natural personal expression"

	moodTemplate           = "MOOD: Write with a %s tone that feels genuine and personal"
	moodImageDirective     = "MOOD: Let the image guide the emotion - be authentically happy, thoughtful, excited, or content"
	hashtagsOnDirective    = "HASHTAGS: Include 2-4 relevant hashtags that feel organic to the post"
	hashtagsOffDirective   = "HASHTAGS: No hashtags"
	specialRequestTemplate = "SPECIAL REQUEST: %s (while keeping it first-person and authentic)"
)

var lengthDirectives = map[Length]string{
	LengthShort:    "LENGTH: Very concise (5-10 words) - quick personal thoughts",
	LengthOneLiner: "LENGTH: Single line, punchy (5-15 words) - witty or impactful personal statement",
	LengthMedium:   "LENGTH: Medium (15-25 words) - balanced personal expression",
	LengthLengthy:  "LENGTH: Detailed (25-40 words) - deeper personal reflection or storytelling",
}

// LengthDirective returns the LENGTH line for l. Lengths outside the four
// known values get the generic medium wording.
func LengthDirective(l Length) string {
	if d, ok := lengthDirectives[l]; ok {
		return d
	}
	return fallbackLengthDirective
}

// MoodDirective returns the MOOD line. The mood is trimmed and lower-cased
// before it is embedded.
func MoodDirective(mood string) string {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return moodImageDirective
	}
	return fmt.Sprintf(moodTemplate, strings.ToLower(mood))
}

// HashtagDirective returns the HASHTAGS line.
func HashtagDirective(include bool) string {
	if include {
		return hashtagsOnDirective
	}
	return hashtagsOffDirective
}

// SpecialRequestDirective returns the SPECIAL REQUEST line, or "" when there
// is nothing to add.
func SpecialRequestDirective(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return ""
	}
	return fmt.Sprintf(specialRequestTemplate, extra)
}

// BuildSystemInstruction renders the system instruction for opts. The result
// depends only on opts; a new string is built on every call.
func BuildSystemInstruction(opts Options) string {
	var b strings.Builder
	b.Grow(len(assets.CaptionPreamble) + len(assets.CaptionClosing) + 512)

	b.WriteString(assets.CaptionPreamble)
	writeLine(&b, LengthDirective(opts.Length))
	writeLine(&b, MoodDirective(opts.Mood))
	writeLine(&b, HashtagDirective(opts.IncludeHashtags))
	if req := SpecialRequestDirective(opts.ExtraInstructions); req != "" {
		writeLine(&b, req)
	}
	b.WriteString(assets.CaptionClosing)

	return b.String()
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteByte('\n')
}
