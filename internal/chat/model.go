package chat

import "os"

// Gemini model IDs that can caption images.
//
// | Model Name            | API Model ID           | Use Case                      |
// |-----------------------|------------------------|-------------------------------|
// | Gemini 2.5 Flash      | gemini-2.5-flash       | Stable, balanced performance  |
// | Gemini 2.5 Flash-Lite | gemini-2.5-flash-lite  | High-throughput, lowest cost  |
// | Gemini 2.5 Pro        | gemini-2.5-pro         | Stable, high-reasoning tasks  |
// | Gemini 3 Flash        | gemini-3-flash-preview | Best for speed + intelligence |
const (
	ModelGemini25Flash       = "gemini-2.5-flash"
	ModelGemini25FlashLite   = "gemini-2.5-flash-lite"
	ModelGemini25Pro         = "gemini-2.5-pro"
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultModelName is the captioning model unless GEMINI_MODEL says otherwise.
const DefaultModelName = ModelGemini25Flash

// GetModelName returns GEMINI_MODEL if set, otherwise DefaultModelName.
func GetModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}
