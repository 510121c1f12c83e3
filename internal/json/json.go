// Package json centralizes JSON encoding on sonic so every package shares
// the same configuration.
package json

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

// Marshal encodes v using the shared sonic configuration.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v with indentation for human-diffable files.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
