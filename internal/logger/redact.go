package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// redactPairs returns a copy of kv with sensitive values masked.
func redactPairs(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		switch v := out[i+1].(type) {
		case string:
			if isSensitiveKey(key) {
				out[i+1] = redacted
			} else {
				out[i+1] = redactText(v)
			}
		default:
			if isSensitiveKey(key) {
				out[i+1] = redacted
			}
		}
	}
	return out
}

func isSensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, s := range []string{"password", "token", "secret", "credential"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

var (
	secretLike  = regexp.MustCompile(`(?i)(token|secret|password|bearer)\s*[:=]\s*([A-Za-z0-9\-\._]+)`)
	urlUserinfo = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s]+@`)
)

// redactText masks inline secrets and the userinfo of remote URLs, which
// git echoes back in errors.
func redactText(s string) string {
	s = urlUserinfo.ReplaceAllString(s, "${1}"+redacted+"@")
	return secretLike.ReplaceAllString(s, "$1="+redacted)
}

func redactError(err error) string {
	if err == nil {
		return ""
	}
	return redactText(err.Error())
}
