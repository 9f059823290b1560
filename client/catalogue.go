package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/habedi/storekeeper/db"
	"github.com/habedi/storekeeper/pkg/pool"
	"github.com/rs/zerolog/log"
)

// RefreshCatalogue lists all products, fetches each one's details concurrently and replaces the
// local catalogue cache. It reports progress via progressCb, which receives a value from 0.0 to 1.0.
// Failures on single products are logged and skipped; an authorization failure aborts the refresh.
func RefreshCatalogue(
	ctx context.Context,
	c *Client,
	repo db.ProductRepository,
	numWorkers int,
	progressCb func(float64),
) error {
	products, err := c.FetchProducts(ctx)
	if err != nil {
		return err
	}
	if err := repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to empty catalogue: %w", err)
	}
	if len(products) == 0 {
		log.Info().Msg("No products found in the catalogue.")
		if progressCb != nil {
			progressCb(1.0)
		}
		return nil
	}

	ids := make([]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	var processed atomic.Int64
	total := float64(len(ids))

	worker := func(ctx context.Context, id int) error {
		defer func() {
			n := processed.Add(1)
			if progressCb != nil {
				progressCb(float64(n) / total)
			}
		}()

		p, raw, fetchErr := c.FetchProduct(ctx, id)
		if fetchErr != nil {
			if Classify(fetchErr) == RenewableAuthFailure {
				return fetchErr
			}
			log.Warn().Err(fetchErr).Int("productID", id).Msg("Failed to fetch product details")
			return nil
		}
		if err := repo.Put(ctx, db.Product{
			ID:       id,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
			Data:     string(raw),
		}); err != nil {
			log.Error().Err(err).Int("productID", id).Msg("Failed to save product to DB")
		}
		return nil
	}

	if errs := pool.RunUntilError(ctx, ids, numWorkers, worker); len(errs) > 0 {
		return fmt.Errorf("catalogue refresh aborted: %w", errors.Join(errs...))
	}
	return ctx.Err()
}
