// Package assets holds the prompt text embedded at compile time.
//
// The files under prompts/ are used byte for byte: the preamble ends with a
// blank line and the closing block has no trailing newline.
package assets

import (
	_ "embed"
)

// CaptionPreamble opens every caption system instruction: first-person
// voice and the CRITICAL GUIDELINES list.
//
//go:embed prompts/caption-preamble.txt
var CaptionPreamble string

// CaptionClosing ends every caption system instruction with the writing
// style notes, examples and the AVOID list.
//
//go:embed prompts/caption-closing.txt
var CaptionClosing string
