package document

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"bayloe/internal/services"
)

// PageWidthMM is the fixed page width of every document.
const PageWidthMM = 210.0

const pointsPerMM = 72.0 / 25.4

func init() {
	// Validation must not read or create a pdfcpu config directory.
	model.ConfigPath = "disable"
}

// PageHeightMM returns the page height that preserves the width:height ratio.
func PageHeightMM(width, height int) float64 {
	return PageWidthMM * float64(height) / float64(width)
}

// Wrap places a JPEG image of width x height pixels on a single page and
// returns the validated PDF bytes.
func Wrap(jpegData []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrAssembly, "document", "wrap", fmt.Sprintf("invalid image size %dx%d", width, height), nil)
	}
	if len(jpegData) == 0 {
		return nil, services.Wrap(services.ErrAssembly, "document", "wrap", "empty page image", nil)
	}

	pageHeight := PageHeightMM(width, height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: PageWidthMM, Ht: pageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("bayloe", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("page", opts, bytes.NewReader(jpegData))
	pdf.ImageOptions("page", 0, 0, PageWidthMM, pageHeight, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return nil, services.Wrap(services.ErrAssembly, "document", "wrap", "place image", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, services.Wrap(services.ErrAssembly, "document", "wrap", "render", err)
	}
	if _, err := Inspect(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Info describes a parsed document.
type Info struct {
	Pages int
	// Page sizes in PDF points.
	Widths  []float64
	Heights []float64
}

// WidthMM returns the width of page i in millimetres.
func (i Info) WidthMM(page int) float64 { return i.Widths[page] / pointsPerMM }

// HeightMM returns the height of page i in millimetres.
func (i Info) HeightMM(page int) float64 { return i.Heights[page] / pointsPerMM }

// Inspect parses and validates a PDF.
func Inspect(data []byte) (Info, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, services.Wrap(services.ErrAssembly, "document", "inspect", "read", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, services.Wrap(services.ErrAssembly, "document", "inspect", "validate", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, services.Wrap(services.ErrAssembly, "document", "inspect", "page count", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return Info{}, services.Wrap(services.ErrAssembly, "document", "inspect", "page dimensions", err)
	}
	info := Info{Pages: ctx.PageCount}
	for _, d := range dims {
		info.Widths = append(info.Widths, d.Width)
		info.Heights = append(info.Heights, d.Height)
	}
	return info, nil
}
