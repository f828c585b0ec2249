package recipe

import "fmt"

// Options are the with values of a node.
type Options map[string]any

// String returns the string option key, or def when it is unset.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOption, key, v)
	}
	return s, nil
}

// Int returns the integer option key, or def when it is unset.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil //nolint:gosec // option values are small
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidOption, key, v)
	}
}
