// Package format is the document layer on top of the envelope: codecs for
// structured documents, the tree walk applying the envelope's encryption-scope
// decision per field, and the Encrypter tying codecs, key-wrapping backends
// and the envelope together.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec converts between raw document bytes and the untyped record tree the
// rest of the library operates on. Implementations must encode with a stable
// key order so repeated saves of an unchanged document produce identical
// bytes.
type Codec interface {
	Marshal(doc map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// JSONCodec encodes documents as indented JSON. encoding/json writes map keys
// in sorted order, which gives the deterministic output the envelope contract
// requires.
type JSONCodec struct{}

func (JSONCodec) Marshal(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode JSON document: %w", err)
	}
	return buf.Bytes(), nil
}

func (JSONCodec) Unmarshal(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedDocument)
	}
	return doc, nil
}

// YAMLCodec encodes documents as YAML. yaml.v3 also writes maps with sorted
// keys, keeping output deterministic.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode YAML document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize YAML document: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Unmarshal(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: top-level value is not a mapping", ErrMalformedDocument)
	}
	return doc, nil
}
