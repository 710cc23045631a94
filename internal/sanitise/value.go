package sanitise

import (
	"fmt"
	"iter"
	"math"
	"reflect"

	"github.com/franz/mldb/internal/util"
)

// HostArray is implemented by adapters around device-resident data (for
// example a GPU tensor). Host copies the data into ordinary Go values,
// typically a slice of fixed-width numbers, which are then sanitised.
type HostArray interface {
	Host() (any, error)
}

// UnsupportedTypeError reports a value that has no JSON-safe rendering.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	if e.Type == nil {
		return "unsupported type encountered: <nil type>"
	}
	return fmt.Sprintf("unsupported type encountered: %s", e.Type)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return util.ErrUnsupportedType
}

// Value converts v into a tree of nil, string, bool, int, int64, float64
// and []any. It is idempotent: Value of a result returns an equal result.
//
//   - primitives come back unchanged
//   - NaN and infinities become nil so the payload stays encodable
//   - HostArray values are materialised and then sanitised
//   - fixed-width integers become int64, fixed-width floats float64
//   - slices, arrays and iter.Seq[any] become []any, order preserved
//
// Everything else fails with *UnsupportedTypeError.
func Value(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int, int64:
		return x, nil
	case float64:
		return finite(x), nil
	case HostArray:
		host, err := x.Host()
		if err != nil {
			return nil, fmt.Errorf("failed to copy %T to host memory: %w", v, err)
		}
		if _, again := host.(HostArray); again {
			return nil, &UnsupportedTypeError{Type: reflect.TypeOf(host)}
		}
		return Value(host)
	case iter.Seq[any]:
		return sequence(x)
	case func(yield func(any) bool):
		return sequence(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			s, err := Value(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}

	return nil, &UnsupportedTypeError{Type: reflect.TypeOf(v)}
}

// Fields sanitises every value of a keyword-style map, keeping the keys.
func Fields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		s, err := Value(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func sequence(seq iter.Seq[any]) (any, error) {
	out := []any{}
	for elem := range seq {
		s, err := Value(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
