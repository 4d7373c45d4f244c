// Package storage holds the record encoding shared by the persistent
// SorterStorage backends in storage/fs and storage/sqlite.
package storage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec converts records to and from their stored form.
type Codec[T any] interface {
	Encode(item T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSON encodes records with encoding/json.
type JSON[T any] struct{}

// Encode marshals item.
func (JSON[T]) Encode(item T) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals data.
func (JSON[T]) Decode(data []byte) (T, error) {
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("json decode: %w", err)
	}
	return item, nil
}

// Gob encodes records with encoding/gob. Every record carries its own type
// description, so it suits small runs of Go-only data.
type Gob[T any] struct{}

// Encode gob-encodes item.
func (Gob[T]) Encode(item T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(item); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes data.
func (Gob[T]) Decode(data []byte) (T, error) {
	var item T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&item); err != nil {
		return item, fmt.Errorf("gob decode: %w", err)
	}
	return item, nil
}
