package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/oliveagle/jsonpath"
)

// ResolveFieldPath looks up a condition's field path in the trigger
// payload or accumulated context. Paths may be written jsonpath-style
// ("$.status") or bare ("status"). The second return reports presence.
func ResolveFieldPath(data map[string]any, fieldPath string) (any, bool) {
	path := fieldPath
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	value, err := jsonpath.JsonPathLookup(data, path)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Evaluate applies one operator to a context value and a comparison
// value. It is total: incompatible shapes evaluate to false, never to an
// error. present reports whether the field path resolved at all, which
// only the exists operator distinguishes from a nil value.
func Evaluate(contextValue any, present bool, op model.Operator, comparisonValue any) bool {
	switch op {
	case model.OP_EQ:
		return present && jsonEqual(contextValue, comparisonValue)
	case model.OP_NEQ:
		return present && !jsonEqual(contextValue, comparisonValue)
	case model.OP_GT:
		return present && toNumber(contextValue) > toNumber(comparisonValue)
	case model.OP_GTE:
		return present && toNumber(contextValue) >= toNumber(comparisonValue)
	case model.OP_LT:
		return present && toNumber(contextValue) < toNumber(comparisonValue)
	case model.OP_LTE:
		return present && toNumber(contextValue) <= toNumber(comparisonValue)
	case model.OP_CONTAINS:
		if !present {
			return false
		}
		haystack := strings.ToLower(fmt.Sprintf("%v", contextValue))
		needle := strings.ToLower(fmt.Sprintf("%v", comparisonValue))
		return strings.Contains(haystack, needle)
	case model.OP_EXISTS:
		return present && contextValue != nil && contextValue != ""
	}
	return false
}

// EvaluateCondition resolves the step's field path against the payload
// and applies its operator.
func EvaluateCondition(step model.Step, payload map[string]any) bool {
	value, present := ResolveFieldPath(payload, step.FieldPath)
	return Evaluate(value, present, step.Operator, step.ComparisonValue)
}

func jsonEqual(a any, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	return reflect.DeepEqual(a, b)
}

// toNumber coerces non-numeric operands to 0. Lossy but observable
// behavior the ordering operators depend on; comparing two non-numeric
// values therefore evaluates as 0 op 0.
func toNumber(v any) float64 {
	n, ok := asNumber(v)
	if !ok {
		return 0
	}
	return n
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
