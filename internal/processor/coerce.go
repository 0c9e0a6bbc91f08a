package processor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// stringForm renders a decoded JSON value the way devices expect it to be
// read back: strings unchanged, numbers as their literal text, null as "".
func stringForm(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// parsePresence reads v as an integer flag. Anything that is not an integer
// is false.
func parsePresence(v interface{}) bool {
	n, err := strconv.ParseInt(strings.TrimSpace(stringForm(v)), 10, 64)
	if err != nil {
		return false
	}
	return n != 0
}

// parseAccess is true only for the literal "true", in any case.
func parseAccess(v interface{}) bool {
	return strings.EqualFold(stringForm(v), "true")
}

// Truthy coerces a stored value to bool. It is applied on read-back so that
// legacy documents holding strings or numbers are still reported as booleans.
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}
