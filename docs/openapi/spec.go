// Package openapi embeds the HTTP API contract served at /openapi.yaml.
package openapi

import _ "embed"

//go:embed bookclub.yaml
var contract []byte

// ContentType is the media type of the embedded contract.
const ContentType = "application/yaml"

// Spec returns a copy of the embedded OpenAPI document.
func Spec() []byte {
	return append([]byte(nil), contract...)
}
