package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/models"
)

// MemoryStore keeps everything in maps guarded by one RWMutex. Transactions
// are serialized and journal an undo step for every write; a failed
// transaction replays the journal in reverse.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	admins   map[primitive.ObjectID]models.Admin
	products map[primitive.ObjectID]models.Product
	orders   map[primitive.ObjectID]models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		admins:   make(map[primitive.ObjectID]models.Admin),
		products: make(map[primitive.ObjectID]models.Product),
		orders:   make(map[primitive.ObjectID]models.Order),
	}
}

func (s *MemoryStore) Admins() AdminRepository     { return memAdmins{s} }
func (s *MemoryStore) Products() ProductRepository { return memProducts{s} }
func (s *MemoryStore) Orders() OrderRepository     { return memOrders{s} }

type journalKey struct{}

type journal struct {
	id   string
	undo []func()
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{id: uuid.NewString()}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		slog.Debug("Memory transaction rolled back", "tx", j.id, "steps", len(j.undo), "error", err)
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// record registers an undo step. Callers hold s.mu.
func (s *MemoryStore) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// newestFirst orders by ObjectID, which grows with insertion time.
func newestFirst(a, b primitive.ObjectID) bool {
	return a.Hex() > b.Hex()
}

type memAdmins struct{ s *MemoryStore }

func (r memAdmins) Create(ctx context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.admins {
		if a.Email == admin.Email {
			return ErrDuplicate
		}
	}
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	id := admin.ID
	r.s.admins[id] = *admin
	r.s.record(ctx, func() { delete(r.s.admins, id) })
	return nil
}

func (r memAdmins) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r memAdmins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.admins {
		if a.Email == email {
			a := a
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r memAdmins) List(ctx context.Context) ([]models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.Admin, 0, len(r.s.admins))
	for _, a := range r.s.admins {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return newestFirst(res[i].ID, res[j].ID) })
	return res, nil
}

func (r memAdmins) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Admin, error) {
	return r.mutate(ctx, id, func(a *models.Admin) bool {
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.Phone != nil {
			a.Phone = *upd.Phone
		}
		if upd.ProfileImage != nil {
			a.ProfileImage = *upd.ProfileImage
		}
		a.UpdatedAt = now
		return true
	})
}

func (r memAdmins) SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, now time.Time) error {
	_, err := r.mutate(ctx, id, func(a *models.Admin) bool {
		a.Password = passwordHash
		a.UpdatedAt = now
		return true
	})
	return err
}

func (r memAdmins) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires *time.Time) error {
	_, err := r.mutate(ctx, id, func(a *models.Admin) bool {
		a.PasswordResetToken = token
		a.PasswordResetExpires = expires
		return true
	})
	return err
}

func (r memAdmins) ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.mutate(ctx, id, func(a *models.Admin) bool {
		if a.PasswordResetToken != token {
			return false
		}
		a.PasswordResetToken = ""
		a.PasswordResetExpires = nil
		return true
	})
	return err
}

// mutate applies fn to the admin with id if fn accepts it.
func (r memAdmins) mutate(ctx context.Context, id primitive.ObjectID, fn func(a *models.Admin) bool) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	prev := a
	if !fn(&a) {
		return nil, ErrNotFound
	}
	r.s.admins[id] = a
	r.s.record(ctx, func() { r.s.admins[id] = prev })
	return &a, nil
}

func (r memAdmins) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.admins[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.s.admins, id)
	r.s.record(ctx, func() { r.s.admins[id] = prev })
	return nil
}

func (r memAdmins) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.Admin, error) {
	return r.consume(ctx, func(a *models.Admin) bool {
		if token == "" || a.EmailVerificationToken != token || a.EmailVerificationExpires == nil || !a.EmailVerificationExpires.After(now) {
			return false
		}
		a.IsVerified = true
		a.EmailVerificationToken = ""
		a.EmailVerificationExpires = nil
		a.UpdatedAt = now
		return true
	})
}

func (r memAdmins) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*models.Admin, error) {
	return r.consume(ctx, func(a *models.Admin) bool {
		if token == "" || a.PasswordResetToken != token || a.PasswordResetExpires == nil || !a.PasswordResetExpires.After(now) {
			return false
		}
		a.Password = passwordHash
		a.PasswordResetToken = ""
		a.PasswordResetExpires = nil
		a.UpdatedAt = now
		return true
	})
}

// consume applies mutate to the first admin it accepts.
func (r memAdmins) consume(ctx context.Context, mutate func(a *models.Admin) bool) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, a := range r.s.admins {
		prev := a
		if mutate(&a) {
			r.s.admins[id] = a
			r.s.record(ctx, func() { r.s.admins[id] = prev })
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

type memProducts struct{ s *MemoryStore }

func (r memProducts) Create(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	id := product.ID
	r.s.products[id] = *product
	r.s.record(ctx, func() { delete(r.s.products, id) })
	return nil
}

func (r memProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memProducts) List(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	res := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return newestFirst(res[i].ID, res[j].ID) })
	return res, nil
}

func (r memProducts) Update(ctx context.Context, id primitive.ObjectID, upd models.ProductUpdate) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	prev := p
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Brand != nil {
		p.Brand = *upd.Brand
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	r.s.record(ctx, func() {
		cur := r.s.products[id]
		prev.Quantity = cur.Quantity
		r.s.products[id] = prev
	})
	return &p, nil
}

func (r memProducts) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.s.products, id)
	r.s.record(ctx, func() { r.s.products[id] = prev })
	return nil
}

func (r memProducts) AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return ErrInsufficientQuantity
	}
	p.Quantity += delta
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	r.s.record(ctx, func() { r.s.inc(id, -delta) })
	return nil
}

func (r memProducts) ReplaceQuantity(ctx context.Context, id primitive.ObjectID, from, to int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.Quantity != from {
		return ErrStale
	}
	p.Quantity = to
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	r.s.record(ctx, func() { r.s.inc(id, from-to) })
	return nil
}

// inc undoes a quantity change as a delta so that writes made outside the
// transaction survive a rollback. Callers hold s.mu.
func (s *MemoryStore) inc(id primitive.ObjectID, delta int) {
	if p, ok := s.products[id]; ok {
		p.Quantity += delta
		s.products[id] = p
	}
}

type memOrders struct{ s *MemoryStore }

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.LineItem(nil), o.Items...)
	return o
}

func (r memOrders) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	id := order.ID
	r.s.orders[id] = cloneOrder(*order)
	r.s.record(ctx, func() { delete(r.s.orders, id) })
	return nil
}

func (r memOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r memOrders) List(ctx context.Context) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		res = append(res, cloneOrder(o))
	}
	sort.Slice(res, func(i, j int) bool { return newestFirst(res[i].ID, res[j].ID) })
	return res, nil
}

func (r memOrders) Replace(ctx context.Context, order *models.Order, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if !prev.UpdatedAt.Equal(updatedAt) {
		return ErrStale
	}
	r.s.orders[order.ID] = cloneOrder(*order)
	r.s.record(ctx, func() { r.s.orders[prev.ID] = prev })
	return nil
}

func (r memOrders) Delete(ctx context.Context, id primitive.ObjectID, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if !prev.UpdatedAt.Equal(updatedAt) {
		return ErrStale
	}
	delete(r.s.orders, id)
	r.s.record(ctx, func() { r.s.orders[id] = prev })
	return nil
}

func (r memOrders) HasPendingWithProduct(ctx context.Context, productID primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.orders {
		if o.Status != models.OrderPending {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
