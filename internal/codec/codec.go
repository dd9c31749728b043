// Package codec converts queue values to and from the representation stored
// in the value column.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupported is returned when a stored value has a type the codec cannot decode.
var ErrUnsupported = errors.New("codec: unsupported stored value")

// Codec converts between a Go value and a storable scalar. Encode must return
// one of string, []byte, int64, or nil.
type Codec[T any] interface {
	Encode(value T) (any, error)
	Decode(stored any) (T, error)
}

// JSON stores values as JSON text.
type JSON[T any] struct{}

func (JSON[T]) Encode(value T) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("codec: encode json: %w", err)
	}
	return string(data), nil
}

func (JSON[T]) Decode(stored any) (T, error) {
	var out T
	data, err := asBytes(stored)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("codec: decode json: %w", err)
	}
	return out, nil
}

// TOML stores values as TOML documents. T must encode to a table, so it is
// suited to struct payloads.
type TOML[T any] struct{}

func (TOML[T]) Encode(value T) (any, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("codec: encode toml: %w", err)
	}
	return buf.String(), nil
}

func (TOML[T]) Decode(stored any) (T, error) {
	var out T
	data, err := asBytes(stored)
	if err != nil {
		return out, err
	}
	if err := toml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("codec: decode toml: %w", err)
	}
	return out, nil
}

// String stores strings as TEXT.
type String struct{}

func (String) Encode(value string) (any, error) { return value, nil }

func (String) Decode(stored any) (string, error) {
	data, err := asBytes(stored)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Bytes stores byte slices as BLOB.
type Bytes struct{}

func (Bytes) Encode(value []byte) (any, error) {
	if value == nil {
		return []byte{}, nil
	}
	return value, nil
}

func (Bytes) Decode(stored any) ([]byte, error) {
	data, err := asBytes(stored)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Int64 stores integers as INTEGER.
type Int64 struct{}

func (Int64) Encode(value int64) (any, error) { return value, nil }

func (Int64) Decode(stored any) (int64, error) {
	switch v := stored.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, stored)
	}
}

func asBytes(stored any) ([]byte, error) {
	switch v := stored.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return nil, fmt.Errorf("%w: NULL", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, stored)
	}
}
