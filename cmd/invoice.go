package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/habedi/storekeeper/config"
	"github.com/habedi/storekeeper/invoice"
	"github.com/habedi/storekeeper/pkg/checksum"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/habedi/storekeeper/pkg/pool"
	"github.com/habedi/storekeeper/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// invoiceCmd renders invoices for orders fetched from the API or read from a JSON file.
func invoiceCmd(a *app) *cobra.Command {
	var orderIDs []string
	var orderFile, format, outputDir, lang, fontPath, sumAlgo string
	var toFile bool

	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Render invoices for orders as PDF, DOCX or a text table",
		Example: "  storekeeper invoice --order 42 --format pdf --output ./invoices\n" +
			"  storekeeper invoice --order 42 --order 43 --format docx\n" +
			"  storekeeper invoice --file order.json --format text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(orderIDs) == 0) == (orderFile == "") {
				return clierr.New(clierr.Validation, "Exactly one of --order or --file is required.", nil)
			}
			orderIDs = uniqueOrderIDs(orderIDs)
			for _, id := range orderIDs {
				if err := validation.ValidateNonEmptyString("order ID", id); err != nil {
					return clierr.New(clierr.Validation, err.Error(), err)
				}
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			// Flags override the invoice section of the configuration.
			run := invoiceRun{opts: a.cfg.Invoice, sumAlgo: sumAlgo}
			if cmd.Flags().Changed("format") {
				run.opts.Format = format
			}
			if cmd.Flags().Changed("output") {
				run.opts.OutputDir = outputDir
			}
			if cmd.Flags().Changed("lang") {
				run.opts.Language = lang
			}
			if cmd.Flags().Changed("font") {
				run.opts.FontPath = fontPath
			}
			if err := validation.ValidateFormat(run.opts.Format); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateLanguage(run.opts.Language); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if sumAlgo != "" && !checksum.IsValid(sumAlgo) {
				return clierr.New(clierr.Validation, fmt.Sprintf("Unsupported checksum algorithm %q.", sumAlgo), nil)
			}
			toStdout := run.opts.Format == "text" && !toFile
			if toStdout && len(orderIDs) > 1 {
				return clierr.New(clierr.Validation, "Only one invoice can be printed at a time; add --save to save several.", nil)
			}

			if orderFile != "" || toStdout {
				var order *invoice.Order
				var err error
				if orderFile != "" {
					order, err = invoice.LoadOrderFile(orderFile)
					if err != nil {
						return clierr.New(clierr.Validation, fmt.Sprintf("Cannot read order file %s: %v", orderFile, err), err)
					}
				} else {
					order, err = a.api.FetchOrder(cmd.Context(), orderIDs[0])
					if err != nil {
						return userError("fetch order "+orderIDs[0], err)
					}
				}
				if toStdout {
					return run.print(cmd.OutOrStdout(), order)
				}
				report, err := run.save(order)
				printReport(cmd, report)
				return err
			}

			// Orders are fetched and rendered concurrently; the catalogue worker count bounds the
			// number of API calls in flight.
			reports := make([][]string, len(orderIDs))
			indexes := make([]int, len(orderIDs))
			for i := range indexes {
				indexes[i] = i
			}
			errs := pool.Run(cmd.Context(), indexes, a.cfg.Catalogue.Workers, func(ctx context.Context, i int) error {
				order, err := a.api.FetchOrder(ctx, orderIDs[i])
				if err != nil {
					return userError("fetch order "+orderIDs[i], err)
				}
				reports[i], err = run.save(order)
				return err
			})
			for _, report := range reports {
				printReport(cmd, report)
			}
			if len(errs) > 0 {
				for _, err := range errs[1:] {
					log.Error().Err(err).Msg("Failed to produce an invoice")
				}
				return errs[0]
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&orderIDs, "order", "o", nil, "ID of an order to fetch from the API; repeat for several orders")
	cmd.Flags().StringVarP(&orderFile, "file", "f", "", "Path of an order JSON file")
	cmd.Flags().StringVar(&format, "format", "", "Output format: pdf, docx or text (default from invoice.format)")
	cmd.Flags().StringVarP(&outputDir, "output", "d", "", "Directory to save invoices in (default from invoice.output_dir)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Label language: en or ru (default from invoice.language)")
	cmd.Flags().StringVar(&fontPath, "font", "", "TrueType font for PDF output; required for non-Latin text")
	cmd.Flags().StringVar(&sumAlgo, "checksum", "sha256", "Print a checksum of each saved file: md5, sha1, sha256, sha512 or empty for none")
	cmd.Flags().BoolVar(&toFile, "save", false, "Save text invoices to a file instead of printing them")

	return cmd
}

// invoiceRun renders invoices with options resolved from flags and configuration.
type invoiceRun struct {
	opts    config.InvoiceConfig
	sumAlgo string
}

func (r invoiceRun) build(order *invoice.Order) (*invoice.Document, error) {
	doc, err := invoice.Build(order, invoice.Options{
		Language:  r.opts.Language,
		Supplier:  r.opts.Supplier,
		Warehouse: r.opts.Warehouse,
	})
	if err != nil {
		return nil, clierr.New(clierr.Validation, fmt.Sprintf("Cannot build the invoice: %v", err), err)
	}
	return doc, nil
}

func (r invoiceRun) print(w io.Writer, order *invoice.Order) error {
	doc, err := r.build(order)
	if err != nil {
		return err
	}
	if err := invoice.WriteText(w, doc); err != nil {
		return clierr.New(clierr.Internal, "Failed to print the invoice.", err)
	}
	return nil
}

// save writes the invoice for order and returns the lines to show the user.
func (r invoiceRun) save(order *invoice.Order) ([]string, error) {
	doc, err := r.build(order)
	if err != nil {
		return nil, err
	}
	path, err := writeInvoice(doc, r.opts.Format, r.opts.OutputDir, r.opts.FontPath)
	if err != nil {
		if errors.Is(err, invoice.ErrFontRequired) {
			return nil, clierr.New(clierr.Validation, err.Error(), err)
		}
		log.Error().Err(err).Str("format", r.opts.Format).Msg("Failed to write invoice")
		return nil, clierr.New(clierr.Internal, "Failed to write the invoice. Please check the logs for details.", err)
	}

	report := []string{"Invoice saved to " + path}
	if r.sumAlgo != "" {
		sum, err := checksum.File(path, r.sumAlgo)
		if err != nil {
			return report, clierr.New(clierr.Internal, "Failed to checksum the saved invoice.", err)
		}
		report = append(report, fmt.Sprintf("%s: %s", strings.ToLower(r.sumAlgo), sum))
	}
	return report, nil
}

func printReport(cmd *cobra.Command, lines []string) {
	for _, line := range lines {
		cmd.Println(line)
	}
}

// uniqueOrderIDs drops repeated IDs so that no two workers write the same file.
func uniqueOrderIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// writeInvoice renders doc in the given format into dir and returns the file path. Nothing is
// written when rendering fails.
func writeInvoice(doc *invoice.Document, format, dir, fontPath string) (string, error) {
	var buf bytes.Buffer
	var ext string
	g := invoice.A4()

	switch format {
	case "pdf":
		ext = "pdf"
		if err := invoice.WritePDF(&buf, doc, g, fontPath); err != nil {
			return "", err
		}
	case "docx":
		ext = "docx"
		if err := invoice.WriteDOCX(&buf, doc, g); err != nil {
			return "", err
		}
	case "text":
		ext = "txt"
		if err := invoice.WriteText(&buf, doc); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, doc.FileName(ext))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", buf.Len()).Msg("Invoice written")
	return path, nil
}
