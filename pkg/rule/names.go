package rule

import (
	"reflect"
	"strings"
	"unicode"
)

// DisplayName inserts a space before every upper-case letter
// that follows another character, e.g. "TrunkBasedDevelopment"
// becomes "Trunk Based Development".
func DisplayName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// OperationDisplayName strips prefix from an operation name and
// converts the rest with DisplayName.
func OperationDisplayName(prefix, name string) string {
	return DisplayName(strings.TrimPrefix(name, prefix))
}

// TypeName returns the name of v's underlying named type,
// dereferencing pointers.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
