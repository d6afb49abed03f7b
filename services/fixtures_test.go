package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/models"
	"pos-backoffice/store"
)

type sentMail struct {
	To, Subject, Body string
}

// recordingMailer keeps every message and fails while err is set. onSend
// runs before each delivery attempt.
type recordingMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	err    error
	onSend func()
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.onSend != nil {
		m.onSend()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fakeImages struct {
	uploads  []string
	onUpload func()
}

func (f *fakeImages) Upload(ctx context.Context, r io.Reader, name, folder string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if f.onUpload != nil {
		f.onUpload()
	}
	f.uploads = append(f.uploads, folder+"/"+name)
	return "https://img.test/" + folder + "/" + name, nil
}

// brokenOrders fails every Replace, leaving the rest of the store intact.
type brokenOrders struct {
	store.OrderRepository
}

func (brokenOrders) Replace(ctx context.Context, order *models.Order, updatedAt time.Time) error {
	return errors.New("write concern timeout")
}

type brokenStore struct {
	store.Store
}

func (s brokenStore) Orders() store.OrderRepository {
	return brokenOrders{s.Store.Orders()}
}

// unlockedStore runs transactions as plain calls, the way MongoStore does
// when MONGO_TRANSACTIONS is off.
type unlockedStore struct {
	*store.MemoryStore
	orders *gatedOrders
}

// newUnlockedStore holds the first n order reads until all n have happened.
func newUnlockedStore(n int) *unlockedStore {
	mem := store.NewMemoryStore()
	return &unlockedStore{
		MemoryStore: mem,
		orders:      &gatedOrders{OrderRepository: mem.Orders(), left: n, open: make(chan struct{})},
	}
}

func (s *unlockedStore) Orders() store.OrderRepository { return s.orders }

func (s *unlockedStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type gatedOrders struct {
	store.OrderRepository
	mu   sync.Mutex
	left int
	open chan struct{}
}

func (g *gatedOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, err := g.OrderRepository.FindByID(ctx, id)
	g.mu.Lock()
	if g.left > 0 {
		g.left--
		if g.left == 0 {
			close(g.open)
		}
	}
	g.mu.Unlock()
	<-g.open
	return o, err
}

// race runs fn twice at once and returns both errors.
func race(fn func() error) []error {
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn()
		}(i)
	}
	wg.Wait()
	return errs
}

func seedProduct(t *testing.T, st store.Store, name string, price float64, qty int) primitive.ObjectID {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Quantity: qty}
	require.NoError(t, st.Products().Create(context.Background(), p))
	return p.ID
}

func stockOf(t *testing.T, st store.Store, id primitive.ObjectID) int {
	t.Helper()
	p, err := st.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func lines(pairs ...any) []models.LineItemRequest {
	var out []models.LineItemRequest
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.LineItemRequest{
			ProductID: pairs[i].(primitive.ObjectID).Hex(),
			Quantity:  pairs[i+1].(int),
		})
	}
	return out
}

func orderReq(items []models.LineItemRequest) models.OrderRequest {
	return models.OrderRequest{
		Items:           items,
		CustomerName:    "Ana",
		CustomerContact: "5551234567",
	}
}

// pngUpload returns a multipart file header holding a small PNG.
func pngUpload(t *testing.T, filename string) *multipart.FileHeader {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}
