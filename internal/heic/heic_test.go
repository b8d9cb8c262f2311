package heic_test

import (
	"testing"

	"bayloe/internal/format"
	"bayloe/internal/heic"
	"bayloe/internal/sandbox"
	"bayloe/internal/testsupport"
)

var _ sandbox.Backend = heic.Decoder{}

func TestDecodeRejectsNonHEIC(t *testing.T) {
	cases := map[string][]byte{
		"empty":   nil,
		"garbage": testsupport.Corrupt(),
		"png":     testsupport.PNG(t, 8, 8),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := (heic.Decoder{}).Decode(data, format.EncodingPNG, 0.9); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}
