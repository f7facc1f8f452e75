package pdfgen

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"

	"github.com/facto/facto/internal/config"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/go-pdf/fpdf"
)

const (
	// RasterScale is the device pixel ratio used when capturing a surface
	RasterScale = 2

	a4WidthMM  = 210.0
	a4HeightMM = 297.0

	imageName = "invoice"
	retryHint = "PDF generation failed. Please try again."
)

// Exporter turns a surface into an A4 PDF on disk
type Exporter struct {
	outputDir string
	logger    *logger.Logger
}

func NewExporter(cfg *config.Configuration, logger *logger.Logger) *Exporter {
	return &Exporter{
		outputDir: cfg.Export.OutputDir,
		logger:    logger,
	}
}

// Export captures surface as a single-page image and writes it to filename
// inside the output directory. The file only appears once fully written.
// It returns the path of the written file.
func (e *Exporter) Export(ctx context.Context, surface Surface, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", renderError(err, "export cancelled")
	}
	if surface == nil {
		return "", renderError(nil, "no surface to export")
	}

	img, err := surface.Snapshot().Rasterize(RasterScale)
	if err != nil {
		return "", renderError(err, "failed to rasterize invoice")
	}

	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return "", renderError(err, "failed to encode invoice image")
	}

	doc, err := buildDocument(&raster, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = "invoice-draft.pdf"
	}
	path := filepath.Join(e.outputDir, filepath.Base(filename))
	size := doc.Len()
	if err := writeAtomic(path, doc); err != nil {
		return "", err
	}

	e.logger.Infow("invoice exported", "path", path, "bytes", size)
	return path, nil
}

// ImageHeightMM is the printed height of a raster of the given pixel size
// when stretched to the A4 width, clamped to one page
func ImageHeightMM(widthPx, heightPx int) float64 {
	if widthPx <= 0 {
		return 0
	}
	h := float64(heightPx) * a4WidthMM / float64(widthPx)
	return min(h, a4HeightMM)
}

func buildDocument(raster *bytes.Buffer, widthPx, heightPx int) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("facto", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, raster)
	pdf.ImageOptions(imageName, 0, 0, a4WidthMM, ImageHeightMM(widthPx, heightPx), false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, renderError(err, "failed to assemble pdf")
	}
	return &out, nil
}

func writeAtomic(path string, doc *bytes.Buffer) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return renderError(err, "failed to create output directory")
	}

	tmp, err := os.CreateTemp(dir, ".facto-export-*.pdf")
	if err != nil {
		return renderError(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()

	if _, err := doc.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return renderError(err, "failed to write pdf")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return renderError(err, "failed to write pdf")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return renderError(err, "failed to move pdf into place")
	}
	return nil
}

func renderError(err error, msg string) error {
	b := ierr.NewError(msg)
	if err != nil {
		b = ierr.WithError(err).WithMessage(msg)
	}
	return b.WithHint(retryHint).Mark(ierr.ErrExportRender)
}
