package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/apperr"
	"pos-backoffice/ledger"
	"pos-backoffice/models"
	"pos-backoffice/store"
)

var errOrderChanged = apperr.Conflict("Order was changed by another request, reload and try again")

// OrderService runs the order lifecycle. Stock is committed only when an
// order becomes Completed; every transition that moves stock runs inside one
// store transaction together with the order write.
type OrderService struct {
	store  store.Store
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewOrderService(st store.Store) *OrderService {
	return &OrderService{
		store:  st,
		ledger: ledger.New(st.Products()),
		now:    time.Now,
	}
}

func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.Orders().List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch orders", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	oid, err := parseID(id, "order")
	if err != nil {
		return nil, err
	}
	return s.find(ctx, oid)
}

func (s *OrderService) find(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Order")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch order", err)
	}
	return order, nil
}

// Create persists a new order. It is Pending unless the request asks for
// Completed, in which case stock is committed in the same transaction.
func (s *OrderService) Create(ctx context.Context, req models.OrderRequest, adminID primitive.ObjectID) (*models.Order, error) {
	target := req.Status
	if target == "" {
		target = models.OrderPending
	}
	if !target.Valid() {
		return nil, apperr.Validation("Invalid order status: %s", target)
	}

	var order *models.Order
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.buildLines(ctx, req.Items)
		if err != nil {
			return err
		}

		now := s.now()
		order = &models.Order{
			Items:           lines,
			TotalAmount:     orderTotal(req.TotalAmount, lines),
			CustomerName:    req.CustomerName,
			CustomerContact: req.CustomerContact,
			CreatedBy:       adminID,
			Status:          models.OrderPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		var applied []ledger.Delta
		if target == models.OrderCompleted {
			if applied, err = s.commit(ctx, order); err != nil {
				return err
			}
		}

		if err := s.store.Orders().Create(ctx, order); err != nil {
			s.ledger.Revert(ctx, applied)
			return apperr.Internal("Failed to create order", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, "Failed to create order")
	}
	return order, nil
}

// UpdateStatus moves an order through its lifecycle. Pending → Completed
// checks and deducts stock for every line; asking for the current status
// is a no-op; Completed is terminal.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	oid, err := parseID(id, "order")
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid order status: %s", status)
	}

	var order *models.Order
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order, err = s.find(ctx, oid)
		if err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}
		if order.Status == models.OrderCompleted {
			return apperr.Validation("Completed orders cannot be reopened")
		}

		applied, err := s.commit(ctx, order)
		if err != nil {
			return err
		}
		return s.replace(ctx, order, applied)
	})
	if errors.Is(err, errOrderChanged) {
		// A concurrent request may have made the same transition.
		if current, ferr := s.find(ctx, oid); ferr == nil && current.Status == status {
			return current, nil
		}
	}
	if err != nil {
		return nil, wrapInternal(err, "Failed to update order status")
	}
	return order, nil
}

// Update replaces the lines and customer fields of an order. For a
// Completed order the committed stock is revised by the net difference
// between the old and new lines, checked in full before anything is written.
func (s *OrderService) Update(ctx context.Context, id string, req models.OrderRequest) (*models.Order, error) {
	oid, err := parseID(id, "order")
	if err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, apperr.Validation("Invalid order status: %s", req.Status)
	}

	var order *models.Order
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order, err = s.find(ctx, oid)
		if err != nil {
			return err
		}
		if order.Status == models.OrderCompleted && req.Status == models.OrderPending {
			return apperr.Validation("Completed orders cannot be reopened")
		}

		lines, err := s.buildLines(ctx, req.Items)
		if err != nil {
			return err
		}

		var applied []ledger.Delta
		if order.Status == models.OrderCompleted {
			deltas := ledger.NetDeltas(itemsOf(order.Items), itemsOf(lines))
			if err := s.ledger.CheckDeltas(ctx, deltas); err != nil {
				return err
			}
			if applied, err = s.ledger.ApplyDeltas(ctx, deltas); err != nil {
				return err
			}
		}

		order.Items = lines
		order.TotalAmount = orderTotal(req.TotalAmount, lines)
		order.CustomerName = req.CustomerName
		order.CustomerContact = req.CustomerContact

		if order.Status == models.OrderPending && req.Status == models.OrderCompleted {
			more, err := s.commit(ctx, order)
			if err != nil {
				s.ledger.Revert(ctx, applied)
				return err
			}
			applied = append(applied, more...)
		}
		return s.replace(ctx, order, applied)
	})
	if err != nil {
		return nil, wrapInternal(err, "Failed to update order")
	}
	return order, nil
}

// Delete removes an order. A Completed order gives its stock back first;
// a Pending order never held any.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "order")
	if err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.find(ctx, oid)
		if err != nil {
			return err
		}

		var applied []ledger.Delta
		if order.Status == models.OrderCompleted {
			if applied, err = s.ledger.ApplyDeltas(ctx, ledger.Restore(itemsOf(order.Items))); err != nil {
				return err
			}
		}

		if err := s.store.Orders().Delete(ctx, oid, order.UpdatedAt); err != nil {
			s.ledger.Revert(ctx, applied)
			return orderWriteError(err, "Failed to delete order")
		}
		return nil
	})
	return wrapInternal(err, "Failed to delete order")
}

// commit checks and deducts stock for every line of order and marks it
// Completed in memory. The caller persists the order.
func (s *OrderService) commit(ctx context.Context, order *models.Order) ([]ledger.Delta, error) {
	items := itemsOf(order.Items)
	if err := s.ledger.CheckAvailability(ctx, items); err != nil {
		return nil, err
	}
	applied, err := s.ledger.ApplyDeltas(ctx, ledger.Deduct(items))
	if err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = models.OrderCompleted
	order.CompletedAt = &now
	return applied, nil
}

// replace writes order back over the copy it was read from, reverting
// applied stock deltas if the write fails or lost a race.
func (s *OrderService) replace(ctx context.Context, order *models.Order, applied []ledger.Delta) error {
	read := order.UpdatedAt
	order.UpdatedAt = nextStamp(s.now(), read)
	if err := s.store.Orders().Replace(ctx, order, read); err != nil {
		s.ledger.Revert(ctx, applied)
		return orderWriteError(err, "Failed to save order")
	}
	return nil
}

// nextStamp returns now, moved past prev when the clock has not advanced a
// full millisecond, so every write changes the stored updated_at.
func nextStamp(now, prev time.Time) time.Time {
	if now.Truncate(time.Millisecond).After(prev) {
		return now
	}
	return prev.Truncate(time.Millisecond).Add(time.Millisecond)
}

func orderWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Order")
	case errors.Is(err, store.ErrStale):
		return errOrderChanged
	default:
		return apperr.Internal(msg, err)
	}
}

// buildLines resolves requested lines against the catalogue, snapshotting
// name and unit price.
func (s *OrderService) buildLines(ctx context.Context, reqs []models.LineItemRequest) ([]models.LineItem, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("Order must contain at least one product")
	}

	lines := make([]models.LineItem, 0, len(reqs))
	for _, r := range reqs {
		pid, err := parseID(r.ProductID, "product")
		if err != nil {
			return nil, err
		}
		if r.Quantity <= 0 {
			return nil, apperr.Validation("Quantity for product %s must be greater than 0", r.ProductID)
		}
		product, err := s.store.Products().FindByID(ctx, pid)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product " + r.ProductID)
		}
		if err != nil {
			return nil, apperr.Internal("Failed to fetch product", err)
		}
		lines = append(lines, models.LineItem{
			ProductID: pid,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  r.Quantity,
		})
	}
	return lines, nil
}

func itemsOf(lines []models.LineItem) []ledger.Item {
	items := make([]ledger.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, ledger.Item{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}

// orderTotal keeps an explicit total (discounts are applied at the till)
// and otherwise sums the lines.
func orderTotal(requested float64, lines []models.LineItem) float64 {
	if requested > 0 {
		return requested
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}
