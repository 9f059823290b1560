package invoice

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Column indexes of the line-item table.
const (
	ColIndex = iota
	ColName
	ColPrice
	ColQuantity
	ColAmount
	numColumns
)

// Options configures Build.
type Options struct {
	Language  string
	Supplier  string // supplier line is omitted when empty
	Warehouse string // warehouse line is omitted when empty
}

// Document is the layout-independent content of an invoice.
type Document struct {
	Number    string
	Title     string
	Meta      []string
	Header    []string
	Rows      [][]string
	Total     float64
	TotalLine string
}

// Build turns an order into an invoice document. The total is computed from the items;
// a different totalPrice on the order is logged and ignored.
func Build(o *Order, opts Options) (*Document, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}
	labels, err := LabelsFor(opts.Language)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Number: o.OrderNumber,
		Title:  fmt.Sprintf(labels.Title, o.OrderNumber, o.OrderDate),
		Header: labels.Columns[:],
		Rows:   make([][]string, 0, len(o.Items)),
	}
	if opts.Supplier != "" {
		doc.Meta = append(doc.Meta, fmt.Sprintf(labels.Supplier, opts.Supplier))
	}
	doc.Meta = append(doc.Meta, fmt.Sprintf(labels.Buyer, o.User.Name))
	if opts.Warehouse != "" {
		doc.Meta = append(doc.Meta, fmt.Sprintf(labels.Warehouse, opts.Warehouse))
	}

	var total float64
	for i, it := range o.Items {
		line := it.LineTotal()
		total += line
		doc.Rows = append(doc.Rows, []string{
			strconv.Itoa(i + 1),
			it.Name,
			FormatAmount(it.Price),
			strconv.Itoa(it.BuyQuantity),
			FormatAmount(line),
		})
	}
	doc.Total = total
	doc.TotalLine = labels.totalLine(FormatAmount(total))

	if math.Abs(total-o.TotalPrice) >= 0.005 {
		log.Warn().
			Str("order", o.OrderNumber).
			Float64("computed", total).
			Float64("totalPrice", o.TotalPrice).
			Msg("Order totalPrice does not match its items; using the computed total")
	}
	return doc, nil
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FileName is the name an invoice for this document is saved under, e.g. "invoice42.pdf".
func (d *Document) FileName(ext string) string {
	number := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, d.Number)
	return "invoice" + number + "." + strings.TrimPrefix(ext, ".")
}
