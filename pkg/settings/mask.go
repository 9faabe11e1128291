package settings

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-blocks/pkg/block"
	masker "github.com/goliatone/go-masker"
)

const maskRule = "preserveEnds(2,2)"

var sensitiveFragments = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "credential", "private_key",
}

func init() {
	for _, field := range sensitiveFragments {
		masker.Default.RegisterMaskField(field, maskRule)
	}
}

// Mask returns a copy of values safe for logging. Values stored under keys
// that look like credentials are masked; nested maps are walked.
func Mask(values block.Settings) block.Settings {
	if values == nil {
		return nil
	}
	out := make(block.Settings, len(values))
	for key, value := range values {
		out[key] = maskValue(key, value)
	}
	return out
}

func maskValue(key string, value any) any {
	switch v := value.(type) {
	case block.Settings:
		return Mask(v)
	case map[string]any:
		return map[string]any(Mask(block.Settings(v)))
	}
	if !IsSensitiveKey(key) || value == nil {
		return block.CloneValue(value)
	}
	return maskString(fmt.Sprint(value))
}

// IsSensitiveKey reports whether key names a credential-like setting.
func IsSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

func maskString(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String(maskRule, value); err == nil && masked != value {
		return masked
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
