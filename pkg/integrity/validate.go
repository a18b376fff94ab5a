package integrity

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/tidwall/gjson"
)

// ErrIntegrity marks a record that does not conform to its schema.
var ErrIntegrity = errors.New("integrity check failed")

// Validate checks raw JSON against s. It returns nil when the record is
// valid and an error wrapping ErrIntegrity naming the first offending path
// otherwise.
func Validate(raw []byte, s Schema) error {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: $: not valid JSON", ErrIntegrity)
	}
	return validate(gjson.ParseBytes(raw), s, "$")
}

// Valid is a boolean shortcut for Validate.
func Valid(raw []byte, s Schema) bool {
	return Validate(raw, s) == nil
}

func mismatch(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrIntegrity, path, fmt.Sprintf(format, args...))
}

func validate(v gjson.Result, s Schema, path string) error {
	switch s.Kind {
	case KindAny:
		return nil

	case KindObject:
		if !v.IsObject() {
			return mismatch(path, "want object, got %s", v.Type)
		}
		members := v.Map()
		for _, f := range s.Fields {
			fv, ok := members[f.Name]
			fpath := path + "." + f.Name
			if !ok {
				if f.Required {
					return mismatch(fpath, "missing required field")
				}
				continue
			}
			if fv.Type == gjson.Null {
				if !f.Nullable {
					return mismatch(fpath, "unexpected null")
				}
				continue
			}
			if err := validate(fv, f.Schema, fpath); err != nil {
				return err
			}
		}
		if s.Values != nil {
			for name, mv := range members {
				if err := validate(mv, *s.Values, path+"."+name); err != nil {
					return err
				}
			}
		}
		return nil

	case KindArray:
		if !v.IsArray() {
			return mismatch(path, "want array, got %s", v.Type)
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range v.Array() {
			if err := validate(item, *s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case KindString:
		if v.Type != gjson.String {
			return mismatch(path, "want string, got %s", v.Type)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, v.Str) {
			return mismatch(path, "value %q not in %v", v.Str, s.Enum)
		}
		return nil

	case KindInt:
		if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
			return mismatch(path, "want integer, got %s", v.Raw)
		}
		return nil

	case KindNumber:
		if v.Type != gjson.Number {
			return mismatch(path, "want number, got %s", v.Type)
		}
		return nil

	case KindBool:
		if !v.IsBool() {
			return mismatch(path, "want boolean, got %s", v.Type)
		}
		return nil
	}

	return mismatch(path, "unknown schema kind %d", s.Kind)
}
