package openapi

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSpecMatchesFileAndIsCopied(t *testing.T) {
	want, err := os.ReadFile("bookclub.yaml")
	if err != nil {
		t.Fatalf("read bookclub.yaml: %v", err)
	}
	spec := Spec()
	if !bytes.Equal(spec, want) {
		t.Fatalf("embedded contract differs from bookclub.yaml")
	}
	spec[0] ^= 0xFF
	if !bytes.Equal(Spec(), want) {
		t.Fatalf("mutating the returned slice changed the embedded contract")
	}
}

func TestSpecDocumentsEveryRoute(t *testing.T) {
	spec := string(Spec())
	for _, path := range []string{
		"/people:",
		"/people/{userId}:",
		"/clubs:",
		"/clubs/{clubId}:",
		"/clubs/{clubId}/join:",
		"/clubs/{clubId}/leave:",
		"/clubs/{clubId}/members:",
		"/clubs/{clubId}/roster-exports:",
	} {
		if !strings.Contains(spec, path) {
			t.Errorf("contract is missing path %s", path)
		}
	}
}
