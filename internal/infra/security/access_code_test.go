package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestAccessCodeGeneratorProducesBase36Codes(t *testing.T) {
	gen := NewAccessCodeGenerator()

	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(code) != AccessCodeLength {
			t.Fatalf("expected %d characters, got %q", AccessCodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(accessCodeAlphabet, r) {
				t.Fatalf("code %q contains character %q outside the alphabet", code, r)
			}
		}
		seen[code] = struct{}{}
	}

	if len(seen) < 195 {
		t.Fatalf("expected nearly all generated codes to be distinct, got %d of 200", len(seen))
	}
}

func TestAccessCodeGeneratorUsesRandomSource(t *testing.T) {
	gen := NewAccessCodeGenerator().WithRandom(bytes.NewReader(make([]byte, 64)))

	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "000000" {
		t.Fatalf("expected all-zero source to produce 000000, got %q", code)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestAccessCodeGeneratorPropagatesRandomFailure(t *testing.T) {
	gen := NewAccessCodeGenerator().WithRandom(failingReader{})

	if _, err := gen.Generate(); err == nil {
		t.Fatal("expected error when the random source fails")
	}
}
