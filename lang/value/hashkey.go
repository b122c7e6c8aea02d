package value

import (
	"fmt"

	"github.com/mna/wisteria/lang/hashkey"
)

// HashKey is re-exported from lang/hashkey so that callers working purely
// in terms of Values never need to import the lower-level package
// themselves; lang/hamt needs HashKey without depending on Value, which is
// why the type itself lives one layer down.
type HashKey = hashkey.HashKey

// ToHashKey projects v to its HashKey: only Integer,
// String and Boolean are hashable. Any other kind fails the containing
// operation with "unusable as hash key".
func ToHashKey(v Value) (HashKey, error) {
	switch v := v.(type) {
	case Integer:
		return hashkey.OfInt(int64(v)), nil
	case *String:
		return hashkey.OfString(v.Value), nil
	case Boolean:
		return hashkey.OfBool(bool(v)), nil
	default:
		return HashKey{}, fmt.Errorf("%s is unusable as hash key", v.Type())
	}
}
