package invoice

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const coreFont = "Helvetica"

// ErrFontRequired is returned when the document has characters the built-in PDF font cannot show.
var ErrFontRequired = errors.New("document needs a UTF-8 font; set invoice.font_path to a TrueType font")

// WritePDF renders the document as a PDF. fontPath points to a TrueType font used for all text;
// when empty the built-in Helvetica is used, which only covers Latin-1.
func WritePDF(w io.Writer, doc *Document, g Geometry, fontPath string) error {
	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetCreator("storekeeper", true)
	pdf.SetTitle(doc.Title, true)

	family := coreFont
	translate := func(s string) string { return s }
	if fontPath != "" {
		family = "invoice"
		pdf.AddUTF8Font(family, "", fontPath)
		pdf.AddUTF8Font(family, "B", fontPath)
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
		if !encodable(doc, translate) {
			return ErrFontRequired
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}

	for _, page := range g.Paginate(doc) {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight})
		for _, t := range page.Texts {
			style := ""
			if t.Bold {
				style = "B"
			}
			pdf.SetFont(family, style, t.Size)
			pdf.SetXY(t.X, t.Y)
			pdf.CellFormat(t.W, t.H, translate(fitWidth(pdf, t.Value, t.W-4)), "", 0, t.Align, false, 0, "")
		}
		pdf.SetLineWidth(0.5)
		for _, l := range page.Lines {
			pdf.Line(l.X1, l.Y1, l.X2, l.Y2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// fitWidth shortens s with a trailing "..." until it fits into width at the current font.
func fitWidth(pdf *fpdf.Fpdf, s string, width float64) string {
	if width <= 0 || pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}

// encodable reports whether every rune of the document survives translate, the cp1252 translator
// used with the built-in font. The translator replaces runes it cannot encode with '.'.
func encodable(doc *Document, translate func(string) string) bool {
	check := func(s string) bool {
		for _, r := range s {
			if r >= 0x80 && translate(string(r)) == "." {
				return false
			}
		}
		return true
	}
	texts := append([]string{doc.Title, doc.TotalLine}, doc.Meta...)
	texts = append(texts, doc.Header...)
	for _, row := range doc.Rows {
		texts = append(texts, row...)
	}
	for _, t := range texts {
		if !check(t) {
			return false
		}
	}
	return true
}
