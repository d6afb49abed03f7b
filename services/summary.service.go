package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pos-backoffice/apperr"
	"pos-backoffice/models"
	"pos-backoffice/store"
)

// SummaryService computes the dashboard figures. "Today" is the calendar
// day in loc.
type SummaryService struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

func NewSummaryService(st store.Store, loc *time.Location) *SummaryService {
	if loc == nil {
		loc = time.Local
	}
	return &SummaryService{store: st, loc: loc, now: time.Now}
}

func (s *SummaryService) Summary(ctx context.Context) (*models.Summary, error) {
	var (
		products []models.Product
		orders   []models.Order
		admins   []models.Admin
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.store.Products().List(gctx, models.ProductFilter{})
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.store.Orders().List(gctx)
		return err
	})
	g.Go(func() (err error) {
		admins, err = s.store.Admins().List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("Failed to build summary", err)
	}

	sum := &models.Summary{
		TotalProducts: len(products),
		AdminCount:    len(admins),
	}

	inventory := decimal.Zero
	for _, p := range products {
		switch {
		case p.Quantity == 0:
			sum.OutOfStock++
		case p.Quantity <= models.LowStockThreshold:
			sum.LowStock++
		}
		inventory = inventory.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
	}

	y, m, d := s.now().In(s.loc).Date()
	sales := decimal.Zero
	for _, o := range orders {
		if o.Status != models.OrderCompleted {
			sum.PendingOrders++
			continue
		}
		sum.CompletedOrders++
		if o.CompletedAt == nil {
			continue
		}
		if cy, cm, cd := o.CompletedAt.In(s.loc).Date(); cy == y && cm == m && cd == d {
			sales = sales.Add(decimal.NewFromFloat(o.TotalAmount))
		}
	}

	sum.TodaysSales = sales.Round(2).InexactFloat64()
	sum.TotalInventoryValue = inventory.Round(2).InexactFloat64()
	return sum, nil
}
