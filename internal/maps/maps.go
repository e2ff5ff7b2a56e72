// Package maps provides small map/struct interop helpers shared across the
// engine. It plays the same role the teacher's utils/maps package plays for
// component configuration binding, generalized to cover every place a
// Configuration map needs to become a typed Go struct.
package maps

import (
	"github.com/mitchellh/mapstructure"
)

// Map2Struct decodes a loosely typed configuration map into a typed struct,
// honoring `mapstructure` struct tags. Unknown keys are ignored; type
// mismatches between map values and destination fields return an error.
func Map2Struct(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Copy performs a shallow merge of src into dst, overwriting existing keys.
func Copy(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// Clone returns a shallow copy of m. A nil input yields an empty, non-nil map.
func Clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MatchGlob reports whether name matches a glob pattern supporting `*` (any
// run of characters) and `?` (any single character), as required by the
// cache engine's key-pattern queries.
func MatchGlob(pattern, name string) bool {
	return matchGlob([]rune(pattern), []rune(name))
}

func matchGlob(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '*':
		// Try consuming zero or more characters of name for the '*'.
		for i := 0; i <= len(name); i++ {
			if matchGlob(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(name) == 0 {
			return false
		}
		return matchGlob(pattern[1:], name[1:])
	default:
		if len(name) == 0 || name[0] != pattern[0] {
			return false
		}
		return matchGlob(pattern[1:], name[1:])
	}
}
