package invoice

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`
)

// twips per PDF point
const twipsPerPoint = 20

// WriteDOCX renders the document as a WordprocessingML package with a single table: one header row
// (repeated by Word on every page) and one row per item.
func WriteDOCX(w io.Writer, doc *Document, g Geometry) error {
	zw := zip.NewWriter(w)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", documentXML(doc, g)},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := io.WriteString(f, p.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish DOCX: %w", err)
	}
	return nil
}

func documentXML(doc *Document, g Geometry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	paragraph(&b, doc.Title, "left", true, g.TitleSize)
	for _, m := range doc.Meta {
		paragraph(&b, m, "left", false, g.MetaSize)
	}
	paragraph(&b, "", "left", false, g.MetaSize)

	b.WriteString(`<w:tbl><w:tblPr>`)
	fmt.Fprintf(&b, `<w:tblW w:w="%d" w:type="dxa"/>`, twips(g.tableWidth()))
	b.WriteString(`<w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(&b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="000000"/>`, side)
	}
	b.WriteString(`</w:tblBorders></w:tblPr><w:tblGrid>`)
	for _, cw := range g.ColumnWidths {
		fmt.Fprintf(&b, `<w:gridCol w:w="%d"/>`, twips(cw))
	}
	b.WriteString(`</w:tblGrid>`)

	tableRow(&b, doc.Header, g, true)
	for _, row := range doc.Rows {
		tableRow(&b, row, g, false)
	}
	b.WriteString(`</w:tbl>`)

	paragraph(&b, doc.TotalLine, "right", true, g.MetaSize)

	fmt.Fprintf(&b, `<w:sectPr><w:pgSz w:w="%d" w:h="%d"/>`, twips(g.PageWidth), twips(g.PageHeight))
	m := twips(g.Margin)
	fmt.Fprintf(&b, `<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="708" w:footer="708" w:gutter="0"/>`, m, m, m, m)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.String()
}

func tableRow(b *strings.Builder, cells []string, g Geometry, header bool) {
	b.WriteString(`<w:tr>`)
	if header {
		b.WriteString(`<w:trPr><w:tblHeader/></w:trPr>`)
	}
	for i, cw := range g.ColumnWidths {
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, twips(cw))
		paragraph(b, v, docxAlign(columnAlign[i]), header, g.BodySize)
		b.WriteString(`</w:tc>`)
	}
	b.WriteString(`</w:tr>`)
}

// paragraph writes one run of text. Sizes are in points; WordprocessingML counts half-points.
func paragraph(b *strings.Builder, text, align string, bold bool, size float64) {
	fmt.Fprintf(b, `<w:p><w:pPr><w:jc w:val="%s"/></w:pPr><w:r><w:rPr>`, align)
	if bold {
		b.WriteString(`<w:b/>`)
	}
	fmt.Fprintf(b, `<w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">`, int(size*2))
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func docxAlign(a string) string {
	switch a {
	case "R":
		return "right"
	case "C":
		return "center"
	default:
		return "left"
	}
}

func twips(pt float64) int {
	return int(pt*twipsPerPoint + 0.5)
}
