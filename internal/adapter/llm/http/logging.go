package http

import "fmt"

const (
	// MaxLoggedBodyLength is the maximum length of an upstream response
	// body to include in logs and error messages. Bodies longer than this
	// are truncated so log aggregators never receive full model output.
	MaxLoggedBodyLength = 200
)

// TruncateForLogging safely truncates an upstream body for logging while
// still providing enough context for debugging.
func TruncateForLogging(body string) string {
	if len(body) <= MaxLoggedBodyLength {
		return body
	}
	return body[:MaxLoggedBodyLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(body))
}
