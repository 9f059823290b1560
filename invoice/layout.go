package invoice

// Geometry describes the page layout in PDF points, with the origin at the top-left corner.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	TitleSize float64
	MetaSize  float64
	BodySize  float64

	TitleStep  float64 // distance from the title to the first meta line
	MetaStep   float64
	TableGap   float64 // distance from the last meta line to the table header
	RowHeight  float64
	TotalGap   float64 // distance from the last row to the total line
	TotalWidth float64

	ColumnWidths [numColumns]float64
}

// A4 is the default geometry: A4 portrait with 50pt margins.
func A4() Geometry {
	return Geometry{
		PageWidth:    595.28,
		PageHeight:   841.89,
		Margin:       50,
		TitleSize:    18,
		MetaSize:     14,
		BodySize:     12,
		TitleStep:    50,
		MetaStep:     20,
		TableGap:     40,
		RowHeight:    20,
		TotalGap:     40,
		TotalWidth:   200,
		ColumnWidths: [numColumns]float64{30, 245, 80, 60, 80},
	}
}

// Text is one cell of text placed on a page.
type Text struct {
	X, Y, W, H float64
	Size       float64
	Bold       bool
	Align      string // "L", "C" or "R"
	Value      string
}

// Line is a straight rule.
type Line struct {
	X1, Y1, X2, Y2 float64
}

// Page is one laid-out page.
type Page struct {
	Number int
	Texts  []Text
	Lines  []Line
	Rows   int // data rows on this page; every page also has one header row
}

var columnAlign = [numColumns]string{"R", "L", "R", "R", "R"}

func (g Geometry) tableWidth() float64 {
	var w float64
	for _, cw := range g.ColumnWidths {
		w += cw
	}
	return w
}

func (g Geometry) bottom() float64 {
	return g.PageHeight - g.Margin
}

// Paginate lays the document out on as many pages as its rows need. The title and meta lines go on
// the first page, the table header is repeated at the top of every page and the total follows the
// last row, moving to a page of its own if it does not fit.
func (g Geometry) Paginate(doc *Document) []Page {
	var pages []Page
	cur := Page{Number: 1}
	y := g.Margin

	cur.Texts = append(cur.Texts, Text{
		X: g.Margin, Y: y, W: g.PageWidth - 2*g.Margin, H: g.TitleSize * 1.5,
		Size: g.TitleSize, Bold: true, Align: "L", Value: doc.Title,
	})
	y += g.TitleStep
	for _, m := range doc.Meta {
		cur.Texts = append(cur.Texts, Text{
			X: g.Margin, Y: y, W: g.PageWidth - 2*g.Margin, H: g.RowHeight,
			Size: g.MetaSize, Align: "L", Value: m,
		})
		y += g.MetaStep
	}
	y += g.TableGap - g.MetaStep
	y = g.placeRow(&cur, y, doc.Header, true)

	for _, row := range doc.Rows {
		if y+g.RowHeight > g.bottom() {
			g.closeTable(&cur, y)
			pages = append(pages, cur)
			cur = Page{Number: len(pages) + 1}
			y = g.placeRow(&cur, g.Margin, doc.Header, true)
		}
		y = g.placeRow(&cur, y, row, false)
		cur.Rows++
	}
	g.closeTable(&cur, y)

	totalY := y - g.RowHeight + g.TotalGap
	if totalY+g.RowHeight > g.bottom() {
		pages = append(pages, cur)
		cur = Page{Number: len(pages) + 1}
		totalY = g.Margin
	}
	cur.Texts = append(cur.Texts, Text{
		X: g.PageWidth - g.Margin - g.TotalWidth, Y: totalY, W: g.TotalWidth, H: g.RowHeight,
		Size: g.MetaSize, Bold: true, Align: "R", Value: doc.TotalLine,
	})
	return append(pages, cur)
}

// placeRow puts one table row at y and returns the y of the next row.
func (g Geometry) placeRow(p *Page, y float64, cells []string, header bool) float64 {
	x := g.Margin
	for i, w := range g.ColumnWidths {
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		p.Texts = append(p.Texts, Text{
			X: x, Y: y, W: w, H: g.RowHeight,
			Size: g.BodySize, Bold: header, Align: columnAlign[i], Value: v,
		})
		x += w
	}
	if header {
		p.Lines = append(p.Lines,
			Line{X1: g.Margin, Y1: y, X2: g.Margin + g.tableWidth(), Y2: y},
			Line{X1: g.Margin, Y1: y + g.RowHeight, X2: g.Margin + g.tableWidth(), Y2: y + g.RowHeight},
		)
	}
	return y + g.RowHeight
}

func (g Geometry) closeTable(p *Page, y float64) {
	p.Lines = append(p.Lines, Line{X1: g.Margin, Y1: y, X2: g.Margin + g.tableWidth(), Y2: y})
}
