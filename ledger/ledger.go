// Package ledger keeps product quantities consistent with committed orders.
//
// Stock only moves through signed deltas applied with store
// AdjustQuantity, which refuses to take a quantity below zero. A batch of
// deltas is applied in product-id order; if one fails, the deltas already
// applied are reverted before the error is returned, so a batch is
// all-or-nothing even without a database transaction around it.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/apperr"
	"pos-backoffice/store"
)

// Item is a requested quantity of one product.
type Item struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// Delta is a signed quantity adjustment. Negative deducts, positive restores.
type Delta struct {
	ProductID primitive.ObjectID
	Amount    int
}

// Ledger applies stock deltas to a product repository.
type Ledger struct {
	Products store.ProductRepository
}

func New(products store.ProductRepository) *Ledger {
	return &Ledger{Products: products}
}

func less(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Coalesce merges repeated products by summing their quantities and returns
// the result sorted by product id.
func Coalesce(items []Item) []Item {
	sum := make(map[primitive.ObjectID]int, len(items))
	for _, it := range items {
		sum[it.ProductID] += it.Quantity
	}
	out := make([]Item, 0, len(sum))
	for id, q := range sum {
		out = append(out, Item{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ProductID, out[j].ProductID) })
	return out
}

// Deduct turns items into negative deltas.
func Deduct(items []Item) []Delta {
	return NetDeltas(nil, items)
}

// Restore turns items into positive deltas.
func Restore(items []Item) []Delta {
	return NetDeltas(items, nil)
}

// NetDeltas is the per-product change that moves committed stock from
// `from` to `to`: everything in from is restored, everything in to is
// deducted. Products whose net change is zero are left out.
func NetDeltas(from, to []Item) []Delta {
	net := make(map[primitive.ObjectID]int)
	for _, it := range from {
		net[it.ProductID] += it.Quantity
	}
	for _, it := range to {
		net[it.ProductID] -= it.Quantity
	}
	out := make([]Delta, 0, len(net))
	for id, amount := range net {
		if amount != 0 {
			out = append(out, Delta{ProductID: id, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ProductID, out[j].ProductID) })
	return out
}

// CheckAvailability fails on the first item whose product holds less than
// requested. Repeated products are coalesced first. This is a read-only
// pre-check; ApplyDeltas enforces the same condition atomically.
func (l *Ledger) CheckAvailability(ctx context.Context, items []Item) error {
	for _, it := range Coalesce(items) {
		if err := l.check(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CheckDeltas verifies every negative delta can be covered by current stock.
func (l *Ledger) CheckDeltas(ctx context.Context, deltas []Delta) error {
	for _, d := range deltas {
		if d.Amount >= 0 {
			continue
		}
		if err := l.check(ctx, d.ProductID, -d.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) check(ctx context.Context, id primitive.ObjectID, need int) error {
	p, err := l.Products.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Product " + id.Hex())
	}
	if err != nil {
		return apperr.Internal("Failed to read stock", err)
	}
	if p.Quantity < need {
		return apperr.InsufficientStock(id.Hex())
	}
	return nil
}

// ApplyDeltas applies deltas in order. A restoration into a product that no
// longer exists is skipped. Any other failure reverts the deltas already
// applied and is returned as an apperr.
func (l *Ledger) ApplyDeltas(ctx context.Context, deltas []Delta) ([]Delta, error) {
	applied := make([]Delta, 0, len(deltas))
	for _, d := range deltas {
		err := l.Products.AdjustQuantity(ctx, d.ProductID, d.Amount)
		if err == nil {
			applied = append(applied, d)
			continue
		}
		if errors.Is(err, store.ErrNotFound) && d.Amount > 0 {
			slog.Warn("Skipping stock restore for missing product", "product_id", d.ProductID.Hex(), "amount", d.Amount)
			continue
		}

		l.Revert(ctx, applied)
		switch {
		case errors.Is(err, store.ErrInsufficientQuantity):
			return nil, apperr.InsufficientStock(d.ProductID.Hex())
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("Product " + d.ProductID.Hex())
		default:
			return nil, apperr.Internal("Failed to update stock", err)
		}
	}
	return applied, nil
}

// Revert undoes applied deltas in reverse order. Failures are logged; the
// enclosing transaction, when there is one, discards them anyway.
func (l *Ledger) Revert(ctx context.Context, applied []Delta) {
	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i]
		if err := l.Products.AdjustQuantity(ctx, d.ProductID, -d.Amount); err != nil {
			slog.Error("Stock compensation failed",
				"product_id", d.ProductID.Hex(),
				"amount", -d.Amount,
				"error", err,
			)
		}
	}
}
