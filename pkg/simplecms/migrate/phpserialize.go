package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elliotchance/phpserialize"
)

// ErrUnserialize is returned for malformed PHP serialized data.
var ErrUnserialize = errors.New("invalid serialized value")

// Unserialize decodes a PHP serialize() payload as stored by legacy sites.
// Arrays with keys 0..n-1 in order become []any, other arrays and objects
// become map[string]any. Object property names lose their visibility
// prefix; the class name is dropped.
func Unserialize(data []byte) (v any, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnserialize)
	}
	// phpserialize indexes past the end of truncated input.
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: truncated input", ErrUnserialize)
		}
	}()

	switch data[0] {
	case 'N':
		err = phpserialize.UnmarshalNil(data)
	case 'b':
		if len(data) < 4 || (data[2] != '0' && data[2] != '1') || data[3] != ';' {
			return nil, fmt.Errorf("%w: malformed boolean", ErrUnserialize)
		}
		v, err = phpserialize.UnmarshalBool(data)
	case 'i':
		var i int64
		i, err = phpserialize.UnmarshalInt(data)
		v = int(i)
	case 'd':
		v, err = phpserialize.UnmarshalFloat(data)
	case 's':
		v, err = phpserialize.UnmarshalString(data)
	case 'a', 'O':
		var m map[any]any
		m, err = phpserialize.UnmarshalAssociativeArray(data)
		if err == nil {
			v, err = normalize(m)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrUnserialize, data[0])
	}
	if err != nil {
		if errors.Is(err, ErrUnserialize) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnserialize, err)
	}
	return v, nil
}

// normalize converts decoded values into the shapes config data uses.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case int64:
		return int(t), nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[any]any:
		return normalizeMap(t)
	}
	return v, nil
}

func normalizeMap(m map[any]any) (any, error) {
	sequential := true
	keys := make(map[string]any, len(m))
	for k, e := range m {
		n, err := normalize(e)
		if err != nil {
			return nil, err
		}
		switch key := k.(type) {
		case int64:
			if key < 0 || key >= int64(len(m)) {
				sequential = false
			}
			keys[fmt.Sprint(key)] = n
		case string:
			sequential = false
			keys[propertyName(key)] = n
		default:
			return nil, fmt.Errorf("%w: invalid array key %v", ErrUnserialize, k)
		}
	}
	if !sequential || len(keys) != len(m) {
		return keys, nil
	}

	list := make([]any, len(m))
	for i := range list {
		list[i] = keys[fmt.Sprint(i)]
	}
	return list, nil
}

// propertyName strips the "\0*\0" and "\0Class\0" visibility prefixes PHP
// writes for protected and private properties.
func propertyName(key string) string {
	if strings.HasPrefix(key, "\x00") {
		if i := strings.LastIndexByte(key, 0); i >= 0 {
			return key[i+1:]
		}
	}
	return key
}
