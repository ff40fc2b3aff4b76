package helpers

import (
	"sort"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// CanonicalizedJSONString formats a JSON value with object keys in alphabetical order, so the
// same content always prints the same way.
func CanonicalizedJSONString(value ldvalue.Value) string {
	switch value.Type() {
	case ldvalue.ArrayType:
		items := make([]string, 0, value.Count())
		for i := 0; i < value.Count(); i++ {
			items = append(items, CanonicalizedJSONString(value.GetByIndex(i)))
		}
		return "[" + strings.Join(items, ",") + "]"
	case ldvalue.ObjectType:
		fields := value.AsValueMap().AsMap()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, 0, len(keys))
		for _, k := range keys {
			items = append(items, ldvalue.String(k).JSONString()+":"+CanonicalizedJSONString(fields[k]))
		}
		return "{" + strings.Join(items, ",") + "}"
	default:
		return value.JSONString()
	}
}
