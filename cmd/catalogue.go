package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/client"
	"github.com/habedi/storekeeper/db"
	"github.com/habedi/storekeeper/invoice"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/habedi/storekeeper/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// catalogueCmd groups the commands working on the local product catalogue
func catalogueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Manage the local product catalogue",
	}

	cmd.AddCommand(
		listCmd(a),
		searchCmd(a),
		infoCmd(a),
		refreshCmd(a),
	)

	return cmd
}

// listCmd shows the list of products in the catalogue
func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all products in the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("Listing all products in the catalogue...")

			products, err := a.products.List(cmd.Context())
			if err != nil {
				log.Error().Err(err).Msg("Failed to fetch products from the catalogue.")
				return clierr.New(clierr.Internal, "Unable to list products. Please check the logs for details.", err)
			}

			if len(products) == 0 {
				cmd.Println("No products found in the catalogue. Use `storekeeper catalogue refresh` to update the catalogue.")
				return nil
			}

			renderProducts(cmd.OutOrStdout(), products)
			log.Info().Msgf("Successfully listed %d products in the catalogue.", len(products))
			return nil
		},
	}
}

// searchCmd searches for products in the catalogue by ID or name
func searchCmd(a *app) *cobra.Command {
	var productID int
	var searchTerm string

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search for products in the catalogue by ID or name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				searchTerm = args[0]
			}
			if productID == 0 && searchTerm == "" {
				return clierr.New(clierr.Validation, "One of --id or a search term is required. Use `storekeeper catalogue search -h` for more information.", nil)
			}
			if productID != 0 && searchTerm != "" {
				return clierr.New(clierr.Validation, "Use either --id or a search term, not both.", nil)
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			var products []db.Product
			if productID != 0 {
				log.Info().Msgf("Searching for product with ID=%d", productID)
				p, err := a.products.GetByID(cmd.Context(), productID)
				if err != nil {
					log.Error().Err(err).Msgf("Failed to fetch product with ID=%d", productID)
					return clierr.New(clierr.Internal, "Search failed. Please check the logs for details.", err)
				}
				if p != nil {
					products = append(products, *p)
				}
			} else {
				log.Info().Msgf("Searching for products with term=%s in the name", searchTerm)
				var err error
				products, err = a.products.SearchByName(cmd.Context(), searchTerm)
				if err != nil {
					log.Error().Err(err).Msgf("Failed to search products with term=%s", searchTerm)
					return clierr.New(clierr.Internal, "Search failed. Please check the logs for details.", err)
				}
			}

			if len(products) == 0 {
				cmd.Println("No product(s) found matching the search criteria.")
				return nil
			}
			renderProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}

	cmd.Flags().IntVarP(&productID, "id", "i", 0, "ID of the product to search")
	return cmd
}

// infoCmd shows the cached details of one product
func infoCmd(a *app) *cobra.Command {
	var productID int
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show information about a specific product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateProductID(productID); err != nil {
				return clierr.New(clierr.Validation, "A positive product ID is required.", err)
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			log.Info().Msgf("Fetching info for product with ID=%d", productID)
			p, err := a.products.GetByID(cmd.Context(), productID)
			if err != nil {
				log.Error().Err(err).Msgf("Failed to fetch info for product with ID=%d", productID)
				return clierr.New(clierr.Internal, "Unable to read the catalogue. Please check the logs for details.", err)
			}
			if p == nil {
				return clierr.New(clierr.NotFound, fmt.Sprintf("No product found with ID %d.", productID), nil)
			}

			cmd.Println("Product Information:")
			cmd.Printf("ID: %d\n", p.ID)
			cmd.Printf("Name: %s\n", p.Name)
			cmd.Printf("Price: %s\n", invoice.FormatAmount(p.Price))
			cmd.Printf("Quantity: %d\n", p.Quantity)
			cmd.Printf("Data: %s\n", p.Data)
			return nil
		},
	}

	cmd.Flags().IntVarP(&productID, "id", "i", 0, "ID of the product to show its information")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'id' flag as required")
	}

	return cmd
}

// refreshCmd replaces the catalogue with the latest data from the API
func refreshCmd(a *app) *cobra.Command {
	var numThreads int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Update the catalogue with the latest data from the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if !cmd.Flags().Changed("threads") {
				numThreads = a.cfg.Catalogue.Workers
			}
			if err := validation.ValidateThreadCount(numThreads); err != nil {
				return clierr.New(clierr.Validation, "Number of threads should be between 1 and 20.", err)
			}

			// Renew a token close to expiry once here instead of letting every worker hit a 401.
			if err := a.svc.EnsureFresh(cmd.Context()); err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					return userError("refresh the catalogue", err)
				}
				log.Warn().Err(err).Msg("Could not renew the session ahead of the refresh")
			}

			log.Info().Msg("Refreshing the product catalogue...")

			bar := progressbar.NewOptions(1000,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Refreshing catalogue..."),
				progressbar.OptionSetWidth(20),
				progressbar.OptionClearOnFinish(),
			)
			progress := func(p float64) { _ = bar.Set(int(p * 1000)) }

			err := client.RefreshCatalogue(cmd.Context(), a.api, a.products, numThreads, progress)
			_ = bar.Finish()
			if err != nil {
				log.Error().Err(err).Msg("Failed to refresh the product catalogue.")
				return userError("refresh the catalogue", err)
			}

			products, err := a.products.List(cmd.Context())
			if err != nil {
				return clierr.New(clierr.Internal, "Unable to read the refreshed catalogue.", err)
			}
			cmd.Printf("Refreshing completed successfully. There are %d products in the catalogue.\n", len(products))
			return nil
		},
	}

	cmd.Flags().IntVarP(&numThreads, "threads", "t", 0, "Number of threads to use for fetching product details (default from catalogue.workers)")
	return cmd
}

// renderProducts prints products as a table.
func renderProducts(w io.Writer, products []db.Product) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row ID", "Product ID", "Name", "Price", "Quantity"})

	table.SetColMinWidth(2, 40)                      // Minimum width for the Name column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks

	for i, p := range products {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", p.ID),
			strings.ReplaceAll(p.Name, "\n", " "),
			invoice.FormatAmount(p.Price),
			fmt.Sprintf("%d", p.Quantity),
		})
	}

	table.Render()
}
