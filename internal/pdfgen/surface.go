package pdfgen

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/facto/facto/internal/domain/invoice"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/types"
	"github.com/samber/lo"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// LogicalWidth is the A4 page width in CSS pixels
	LogicalWidth = 794
	// LogicalHeight is the A4 page height in CSS pixels
	LogicalHeight = 1123

	margin       = 48
	headerHeight = 96
	lineHeight   = 18
	rowHeight    = 24
)

// Surface is a renderable view of the invoice preview
type Surface interface {
	// Width is the logical width in pixels
	Width() int
	// Snapshot returns a copy unaffected by later edits to the source
	Snapshot() Surface
	// Rasterize renders the surface at scale times its logical size
	Rasterize(scale int) (image.Image, error)
}

// AccentColor is the highlight colour of a template's header and table rule
func AccentColor(t types.TemplateType) color.RGBA {
	switch t {
	case types.TemplateModern:
		return color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
	case types.TemplateModern2:
		return color.RGBA{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff}
	case types.TemplateModern3:
		return color.RGBA{R: 0x05, G: 0x96, B: 0x69, A: 0xff}
	case types.TemplateModern4:
		return color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	case types.TemplateClassic:
		return color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	case types.TemplateClassicGray:
		return color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	case types.TemplateClassicYellow:
		return color.RGBA{R: 0xea, G: 0xb3, B: 0x08, A: 0xff}
	case types.TemplateClassicBlue:
		return color.RGBA{R: 0x1e, G: 0x40, B: 0xaf, A: 0xff}
	case types.TemplateMinimal:
		return color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	}
	return AccentColor(types.DefaultTemplate)
}

type invoiceSurface struct {
	draft    *invoice.Draft
	template types.TemplateType
}

// InvoiceSurface lays out draft with the given template
func InvoiceSurface(draft *invoice.Draft, template types.TemplateType) Surface {
	if template.Validate() != nil {
		template = types.DefaultTemplate
	}
	return &invoiceSurface{draft: draft, template: template}
}

func (s *invoiceSurface) Width() int {
	return LogicalWidth
}

func (s *invoiceSurface) Snapshot() Surface {
	if s.draft == nil {
		return &invoiceSurface{template: s.template}
	}
	return &invoiceSurface{draft: s.draft.Clone(), template: s.template}
}

func (s *invoiceSurface) height() int {
	if s.draft == nil {
		return LogicalHeight
	}
	notes := len(lo.Compact(strings.Split(s.draft.Notes, "\n")))
	h := headerHeight + 9*lineHeight + (len(s.draft.Items)+1)*rowHeight + 5*lineHeight + notes*lineHeight + 2*margin
	return max(h, LogicalHeight)
}

func (s *invoiceSurface) Rasterize(scale int) (image.Image, error) {
	if s.draft == nil {
		return nil, ierr.NewError("nothing to render").
			WithHint("PDF generation failed. Please try again.").
			Mark(ierr.ErrExportRender)
	}
	if scale < 1 {
		scale = 1
	}

	page := image.NewRGBA(image.Rect(0, 0, LogicalWidth, s.height()))
	draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)
	s.paint(page)

	if scale == 1 {
		return page, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, page.Bounds().Dx()*scale, page.Bounds().Dy()*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), page, page.Bounds(), xdraw.Src, nil)
	return out, nil
}

func (s *invoiceSurface) paint(page *image.RGBA) {
	d := s.draft
	accent := AccentColor(s.template)
	ink := color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	muted := color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}

	draw.Draw(page, image.Rect(0, 0, LogicalWidth, headerHeight), image.NewUniform(accent), image.Point{}, draw.Src)
	x := margin
	if logo, ok := decodeLogo(d.CompanyLogo); ok {
		x += drawLogo(page, logo, image.Pt(margin, (headerHeight-logoMaxHeight)/2)) + logoGap
	}
	text(page, x, 40, color.White, lo.Ternary(d.CompanyName != "", d.CompanyName, "Your company"))
	text(page, LogicalWidth-margin-7*len("INVOICE"), 40, color.White, "INVOICE")
	text(page, x, 64, color.White, d.InvoiceNumber)

	y := headerHeight + 2*lineHeight
	left := []string{d.CompanyAddress, strings.TrimSpace(d.CompanyPostalCode + " " + d.CompanyCity), vatLine(d.CompanyVAT), d.CompanyPhone, d.CompanyEmail}
	right := []string{d.ClientName, d.ClientAddress, strings.TrimSpace(d.ClientPostalCode + " " + d.ClientCity), vatLine(d.ClientVAT)}
	text(page, margin, y, muted, "FROM")
	text(page, LogicalWidth/2, y, muted, "BILL TO")
	for i, line := range lo.Compact(left) {
		text(page, margin, y+(i+1)*lineHeight, ink, line)
	}
	for i, line := range lo.Compact(right) {
		text(page, LogicalWidth/2, y+(i+1)*lineHeight, ink, line)
	}

	y += 6 * lineHeight
	text(page, margin, y, muted, "Date: "+d.InvoiceDate)
	text(page, LogicalWidth/2, y, muted, "Due: "+d.DueDate)

	y += lineHeight
	columns := []int{margin, 430, 500, 600, 690}
	draw.Draw(page, image.Rect(margin, y, LogicalWidth-margin, y+2), image.NewUniform(accent), image.Point{}, draw.Src)
	y += rowHeight - 6
	for i, h := range []string{"Description", "Qty", "Unit price", "VAT %", "Total"} {
		text(page, columns[i], y, accent, h)
	}
	for _, li := range d.Items {
		y += rowHeight
		cells := []string{
			li.Description,
			li.Quantity.String(),
			invoice.FormatAmount(li.UnitPrice),
			li.VATRate.String(),
			invoice.FormatAmount(li.Total()),
		}
		for i, c := range cells {
			text(page, columns[i], y, ink, c)
		}
	}

	y += rowHeight
	draw.Draw(page, image.Rect(columns[3], y, LogicalWidth-margin, y+1), image.NewUniform(muted), image.Point{}, draw.Src)
	for _, row := range [][2]string{
		{"Subtotal", invoice.FormatAmount(d.Subtotal())},
		{"VAT", invoice.FormatAmount(d.VATTotal())},
		{"Total", invoice.FormatAmount(d.Total()) + " EUR"},
	} {
		y += lineHeight
		text(page, columns[3], y, ink, row[0])
		text(page, columns[4], y, ink, row[1])
	}

	if notes := lo.Compact(strings.Split(d.Notes, "\n")); len(notes) > 0 {
		y += 2 * lineHeight
		text(page, margin, y, muted, "Notes")
		for _, n := range notes {
			y += lineHeight
			text(page, margin, y, ink, n)
		}
	}
}

func vatLine(vat string) string {
	if vat == "" {
		return ""
	}
	return "VAT " + vat
}

func text(dst draw.Image, x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
