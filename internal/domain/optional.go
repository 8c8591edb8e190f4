package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional is a JSON field that remembers whether it was present in the payload.
// A present null decodes to Set=true, Null=true.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns a present Optional carrying an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for keys present in the input.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T

		o.Value = zero
		o.Null = true

		return nil
	}

	o.Null = false

	if err := json.Unmarshal(data, &o.Value); err != nil {
		return fmt.Errorf("unmarshal optional: %w", err)
	}

	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}

	//nolint:wrapcheck
	return json.Marshal(o.Value)
}

// Ptr returns the value as a pointer, nil when null. ok is false when the field was absent.
func (o Optional[T]) Ptr() (_ *T, ok bool) {
	if !o.Set {
		return nil, false
	}

	if o.Null {
		return nil, true
	}

	v := o.Value

	return &v, true
}
