package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize keeps the safe HTML subset of user-generated content to prevent XSS attacks.
func Sanitize(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// SanitizePlain strips all markup from single-line fields such as titles and names.
// The result is raw text: entities the policy escaped are decoded again,
// so "Tom & Jerry" is stored as typed and escaping is left to the renderer.
func SanitizePlain(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
