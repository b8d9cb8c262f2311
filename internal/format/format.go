package format

import (
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format is the target of a conversion.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
	PDF  Format = "pdf"
)

// Default is assigned to newly queued items.
const Default = PNG

// Raster encodings understood by the raster and sandbox decoders.
const (
	EncodingPNG  = "image/png"
	EncodingJPEG = "image/jpeg"
	EncodingWebP = "image/webp"
)

// MIMEPDF is the content type of assembled documents.
const MIMEPDF = "application/pdf"

var allFormats = []Format{PNG, JPEG, WebP, PDF}

var aliases = map[string]Format{
	"png":  PNG,
	"jpeg": JPEG,
	"jpg":  JPEG,
	"webp": WebP,
	"pdf":  PDF,
}

// All returns the supported formats in display order.
func All() []Format {
	cp := make([]Format, len(allFormats))
	copy(cp, allFormats)
	return cp
}

// Parse converts user input ("PNG", "jpg", " webp ") into a Format.
func Parse(value string) (Format, bool) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(value))]
	return f, ok
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	_, ok := aliases[string(f)]
	return ok && string(f) != "jpg"
}

// Encoding returns the raster encoding produced before any document wrapping.
// PDF pages embed JPEG data.
func (f Format) Encoding() string {
	switch f {
	case JPEG, PDF:
		return EncodingJPEG
	case WebP:
		return EncodingWebP
	default:
		return EncodingPNG
	}
}

// MIME returns the content type of the final output.
func (f Format) MIME() string {
	if f == PDF {
		return MIMEPDF
	}
	return f.Encoding()
}

// Extension returns the file extension (without dot) for the output.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// DownloadName is the file name offered for a completed item.
func (f Format) DownloadName() string {
	return "converted." + f.Extension()
}

// Label is the upper-case name shown to users (PNG, JPG, WEBP, PDF).
func (f Format) Label() string {
	return cases.Upper(language.Und).String(f.Extension())
}

func (f Format) String() string { return string(f) }

// IsHEIC reports whether a file name carries a HEIC/HEIF suffix.
func IsHEIC(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return true
	default:
		return false
	}
}

// DetectMIME returns the MIME type implied by the file extension, or "" when
// unknown. HEIC files are reported as image/heic even where the platform mime
// table lacks an entry.
func DetectMIME(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case "":
		return ""
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		if base, _, err := mime.ParseMediaType(typ); err == nil {
			return base
		}
		return typ
	}
	return ""
}

// Accepts applies the "image/*, .heic, .heif" input filter.
func Accepts(name, mimeType string) bool {
	if IsHEIC(name) {
		return true
	}
	if mimeType == "" {
		mimeType = DetectMIME(name)
	}
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}
