package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenRegex = regexp.MustCompile(`\{(\$[^{}]*)\}`)

// ResolveParams substitutes {$.path} tokens in string values against the
// trigger payload. A string that is exactly one token resolves to the raw
// payload value, keeping its type; a string mixing tokens and literal text
// resolves token-by-token into the string. Tokens that do not resolve are
// left as written. The function is total: it never fails, it only copies.
func ResolveParams(payload map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any)
	resolveParams(payload, params, output)
	return output
}

func resolveParams(payload map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch val := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveParams(payload, val, out)
		case string:
			output[k] = resolveString(payload, val)
		case []any:
			output[k] = resolveList(payload, val)
		default:
			output[k] = v
		}
	}
}

func resolveList(payload map[string]any, list []any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		switch val := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveParams(payload, val, out)
			output = append(output, out)
		case string:
			output = append(output, resolveString(payload, val))
		case []any:
			output = append(output, resolveList(payload, val))
		default:
			output = append(output, v)
		}
	}
	return output
}

func resolveString(payload map[string]any, s string) any {
	tokens := tokenRegex.FindAllStringSubmatch(s, -1)
	if len(tokens) == 0 {
		return s
	}
	// a lone token keeps the resolved value's type
	if len(tokens) == 1 && tokens[0][0] == s {
		value, err := jsonpath.JsonPathLookup(payload, tokens[0][1])
		if err != nil || value == nil {
			return s
		}
		return value
	}
	newStr := s
	for _, token := range tokens {
		value, err := jsonpath.JsonPathLookup(payload, token[1])
		if err != nil || value == nil {
			continue
		}
		newStr = strings.ReplaceAll(newStr, token[0], fmt.Sprintf("%v", value))
	}
	return newStr
}
