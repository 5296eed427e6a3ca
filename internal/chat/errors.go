package chat

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind categorizes Gemini failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindRateLimited: quota exhausted or 429.
	KindRateLimited
	// KindInvalidInput: the request was rejected (bad image, bad argument).
	KindInvalidInput
	// KindAuth: the API key is missing, invalid or lacks permission.
	KindAuth
	// KindTransient: network fault or 5xx from the API.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInput:
		return "invalid_input"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ProviderError is a classified Gemini failure.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of the first ProviderError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return KindUnknown, false
}

// ClassifyError wraps err in a ProviderError. API errors are classified by
// HTTP code; anything else by message pattern.
func ClassifyError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyAPIError(*apiErrPtr, err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case containsAny(errLower, "api key not valid", "invalid api key", "api_key_invalid", "permission denied"):
		return &ProviderError{Kind: KindAuth, Message: "API key is invalid or has been revoked", Err: err}
	case containsAny(errLower, "quota", "resource exhausted", "rate limit"):
		return &ProviderError{Kind: KindRateLimited, Message: "API quota exceeded or rate limited", Err: err}
	case containsAny(errLower, "connection", "network", "timeout", "deadline exceeded", "dial", "no such host", "unreachable", "eof"):
		return &ProviderError{Kind: KindTransient, Message: "network error talking to Gemini", Err: err}
	default:
		return &ProviderError{Kind: KindUnknown, Message: "failed to generate content", Err: err}
	}
}

func classifyAPIError(apiErr genai.APIError, err error) *ProviderError {
	switch apiErr.Code {
	case 400:
		return &ProviderError{Kind: KindInvalidInput, Message: "Gemini rejected the request", Err: err}
	case 401, 403:
		return &ProviderError{Kind: KindAuth, Message: "API key is invalid, expired, or lacks permissions", Err: err}
	case 429:
		return &ProviderError{Kind: KindRateLimited, Message: "API rate limit exceeded - try again later", Err: err}
	case 500, 502, 503, 504:
		return &ProviderError{Kind: KindTransient, Message: "Gemini API server error - try again later", Err: err}
	default:
		return &ProviderError{Kind: KindUnknown, Message: "Gemini API error", Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
