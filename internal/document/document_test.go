package document_test

import (
	"errors"
	"math"
	"testing"

	"bayloe/internal/document"
	"bayloe/internal/services"
	"bayloe/internal/testsupport"
)

func TestWrapProducesSinglePageAtImageAspect(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"landscape", 200, 100},
		{"portrait", 100, 300},
		{"square", 64, 64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pdf, err := document.Wrap(testsupport.JPEG(t, tc.w, tc.h), tc.w, tc.h)
			if err != nil {
				t.Fatalf("Wrap: %v", err)
			}
			if string(pdf[:4]) != "%PDF" {
				t.Fatalf("missing PDF header")
			}
			info, err := document.Inspect(pdf)
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if info.Pages != 1 {
				t.Fatalf("expected 1 page, got %d", info.Pages)
			}
			if got := info.WidthMM(0); math.Abs(got-document.PageWidthMM) > 0.5 {
				t.Fatalf("page width %.2fmm, want %.0fmm", got, document.PageWidthMM)
			}
			wantHeight := document.PageWidthMM * float64(tc.h) / float64(tc.w)
			if got := info.HeightMM(0); math.Abs(got-wantHeight) > 0.5 {
				t.Fatalf("page height %.2fmm, want %.2fmm", got, wantHeight)
			}
		})
	}
}

func TestWrapRejectsInvalidInput(t *testing.T) {
	if _, err := document.Wrap(nil, 10, 10); !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected ErrAssembly for empty image, got %v", err)
	}
	if _, err := document.Wrap(testsupport.JPEG(t, 4, 4), 0, 4); !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected ErrAssembly for zero width, got %v", err)
	}
	if _, err := document.Wrap(testsupport.Corrupt(), 4, 4); !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected ErrAssembly for non-JPEG payload, got %v", err)
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := document.Inspect([]byte("%PDF-1.7 nonsense")); !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected ErrAssembly, got %v", err)
	}
}

func TestPageHeightMM(t *testing.T) {
	if got := document.PageHeightMM(200, 100); got != 105 {
		t.Fatalf("PageHeightMM(200,100) = %v, want 105", got)
	}
}
