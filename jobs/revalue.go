// Package jobs runs the scheduled portfolio revaluation. Without it the
// performance series only grows when a caller rebalances by hand.
package jobs

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"portfolio-rebalancer/database"
	"portfolio-rebalancer/models"
	"portfolio-rebalancer/pricing"
	"portfolio-rebalancer/rebalance"
)

// Revaluer re-resolves prices for every stored portfolio's holdings and
// pushes the result through the normal create-or-update path, so each
// run appends snapshots through the store's sole writer.
type Revaluer struct {
	store  *database.Store
	prices pricing.Provider
	cron   *cron.Cron
}

func NewRevaluer(store *database.Store, prices pricing.Provider) *Revaluer {
	return &Revaluer{store: store, prices: prices}
}

// Start schedules Run with the given cron spec.
func (r *Revaluer) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, r.Run); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	return nil
}

func (r *Revaluer) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Run revalues every portfolio that has persisted holdings. Failures are
// logged per portfolio and never stop the sweep.
func (r *Revaluer) Run() {
	portfolios, err := r.store.List()
	if err != nil {
		log.Println("revalue: list portfolios:", err)
		return
	}

	ctx := context.Background()
	for _, portfolio := range portfolios {
		if len(portfolio.Holdings) == 0 {
			continue
		}
		if err := r.revalue(ctx, portfolio); err != nil {
			log.Printf("revalue: portfolio %d: %v", portfolio.ID, err)
		}
	}
}

func (r *Revaluer) revalue(ctx context.Context, portfolio models.Portfolio) error {
	symbols := make([]string, 0, len(portfolio.Holdings)+len(portfolio.Targets))
	for _, holding := range portfolio.Holdings {
		symbols = append(symbols, holding.Symbol)
	}
	for _, target := range portfolio.Targets {
		symbols = append(symbols, target.Symbol)
	}

	prices, err := r.prices.ResolvePrices(ctx, symbols)
	if err != nil {
		return err
	}

	result, err := rebalance.Compute(rebalance.Request{
		Holdings:          portfolio.Holdings,
		Targets:           portfolio.Targets,
		CashBufferPercent: portfolio.CashBufferPercent,
	}, prices)
	if err != nil {
		return err
	}

	_, err = r.store.CreateOrUpdate(
		&portfolio.ID,
		portfolio.UserID,
		rebalance.Round2(result.TotalValue),
		portfolio.CashBufferPercent,
		portfolio.Holdings,
		portfolio.Targets,
		models.RecommendationMap(result.Recommendations),
	)
	return err
}
