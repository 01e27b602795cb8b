package matching

import (
	"github.com/ohler55/ojg/oj"
)

var jsonWriteOptions = oj.Options{Sort: true, OmitNil: false}

// jsonRepr renders a parsed JSON value back to compact JSON with sorted map
// keys, so mismatch descriptions are deterministic.
func jsonRepr(v any) string {
	return oj.JSON(v, &jsonWriteOptions)
}

// jsonToString renders a JSON value for a mismatch message: strings are used
// raw, everything else as compact JSON.
func jsonToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return jsonRepr(v)
}

func typeOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "Map"
	case []any:
		return "List"
	case nil:
		return "Null"
	case bool:
		return "Boolean"
	case int64, float64, int, uint64:
		return "Number"
	case string:
		return "String"
	default:
		return "Unknown"
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int64, int, uint64:
		return true
	default:
		return false
	}
}

func isDecimal(v any) bool {
	_, ok := v.(float64)
	return ok
}

func isNumber(v any) bool {
	return isInteger(v) || isDecimal(v)
}

func sameJSONType(a, b any) bool {
	ta, tb := typeOf(a), typeOf(b)
	return ta == tb && ta != "Unknown"
}
