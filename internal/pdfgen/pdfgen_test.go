package pdfgen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/domain/invoice"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSurface struct{}

func (brokenSurface) Width() int          { return LogicalWidth }
func (b brokenSurface) Snapshot() Surface { return b }
func (brokenSurface) Rasterize(int) (image.Image, error) {
	return nil, errors.New("canvas lost")
}

func testDraft() *invoice.Draft {
	d := invoice.NewDraft(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC))
	d.CompanyName = "Acme"
	d.ClientName = "Globex"
	d.InvoiceNumber = "2026/007"
	d.Notes = "Thanks\nPay within 30 days"
	d.Items = append(d.Items, invoice.LineItem{
		ID:          "item_1",
		Description: "Consulting",
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.RequireFromString("10.00"),
		VATRate:     decimal.NewFromInt(21),
	})
	return d
}

func newExporter(t *testing.T, dir string) *Exporter {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Export.OutputDir = dir
	return NewExporter(cfg, logger.NewNoopLogger())
}

func TestRasterizeScalesLogicalWidth(t *testing.T) {
	surface := InvoiceSurface(testDraft(), types.TemplateModern2)
	assert.Equal(t, LogicalWidth, surface.Width())

	img, err := surface.Rasterize(RasterScale)
	require.NoError(t, err)
	assert.Equal(t, LogicalWidth*RasterScale, img.Bounds().Dx())
	assert.Equal(t, LogicalHeight*RasterScale, img.Bounds().Dy())

	r, g, b, _ := img.At(4, 4).RGBA()
	want := AccentColor(types.TemplateModern2)
	assert.Equal(t, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff}, want)
}

func TestAccentColorCoversEveryTemplate(t *testing.T) {
	seen := map[color.RGBA]types.TemplateType{}
	for _, tmpl := range types.Templates {
		c := AccentColor(tmpl)
		_, dup := seen[c]
		assert.False(t, dup, "template %s shares its accent", tmpl)
		seen[c] = tmpl
	}
	assert.Equal(t, AccentColor(types.DefaultTemplate), AccentColor("neon"))
}

func TestSnapshotIsIsolatedFromEdits(t *testing.T) {
	draft := testDraft()
	surface := InvoiceSurface(draft, types.TemplateClassic)
	snap := surface.Snapshot()

	for i := 0; i < 80; i++ {
		draft.Items = append(draft.Items, invoice.NewLineItem())
	}

	img, err := snap.Rasterize(1)
	require.NoError(t, err)
	assert.Equal(t, LogicalHeight, img.Bounds().Dy())

	grown, err := surface.Rasterize(1)
	require.NoError(t, err)
	assert.Greater(t, grown.Bounds().Dy(), LogicalHeight)
}

func TestImageHeightMM(t *testing.T) {
	assert.InDelta(t, 296.99, ImageHeightMM(1588, 2246), 0.1)
	assert.Equal(t, 297.0, ImageHeightMM(1588, 5000))
	assert.Equal(t, 105.0, ImageHeightMM(1000, 500))
	assert.Zero(t, ImageHeightMM(0, 10))
}

func TestExportWritesPDF(t *testing.T) {
	dir := t.TempDir()
	e := newExporter(t, dir)
	draft := testDraft()

	path, err := e.Export(context.Background(), InvoiceSurface(draft, types.TemplateMinimal), draft.Filename())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoice-2026-007.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExportFailures(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() context.Context
		surface Surface
	}{
		{
			name:    "rasterizer fails",
			ctx:     context.Background,
			surface: brokenSurface{},
		},
		{
			name:    "empty surface",
			ctx:     context.Background,
			surface: InvoiceSurface(nil, types.TemplateModern),
		},
		{
			name: "cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			surface: InvoiceSurface(testDraft(), types.TemplateModern),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := newExporter(t, dir).Export(tt.ctx(), tt.surface, "invoice-x.pdf")
			require.Error(t, err)
			assert.True(t, ierr.IsExportRender(err))
			assert.Equal(t, "PDF generation failed. Please try again.", ierr.DisplayMessage(err, ""))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestExportLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	_, err := newExporter(t, blocker).Export(context.Background(), InvoiceSurface(testDraft(), types.TemplateModern), "invoice-1.pdf")
	require.Error(t, err)
	assert.True(t, ierr.IsExportRender(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
