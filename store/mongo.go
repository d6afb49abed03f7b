package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	adminsCollection   = "admins"
	productsCollection = "products"
	ordersCollection   = "orders"

	queryTimeout = 10 * time.Second
)

// MongoStore is the MongoDB backed Store.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool

	admins   *mongoAdmins
	products *mongoProducts
	orders   *mongoOrders
}

// NewMongoStore wraps a connected client. Multi-document transactions need a
// replica set; with transactions disabled WithTransaction runs fn directly.
func NewMongoStore(client *mongo.Client, dbName string, transactions bool) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		db:           db,
		transactions: transactions,
		admins:       &mongoAdmins{collection: db.Collection(adminsCollection)},
		products:     &mongoProducts{collection: db.Collection(productsCollection)},
		orders:       &mongoOrders{collection: db.Collection(ordersCollection)},
	}
}

func (s *MongoStore) Admins() AdminRepository     { return s.admins }
func (s *MongoStore) Products() ProductRepository { return s.products }
func (s *MongoStore) Orders() OrderRepository     { return s.orders }

func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	// Already inside a session transaction: join it.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely
// on. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	adminIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email_verification_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "password_reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := s.db.Collection(adminsCollection).Indexes().CreateMany(ctx, adminIdx); err != nil {
		return fmt.Errorf("create admin indexes: %w", err)
	}

	orderIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "items.product_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "completed_at", Value: -1}}},
	}
	if _, err := s.db.Collection(ordersCollection).Indexes().CreateMany(ctx, orderIdx); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}

	productIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}
	if _, err := s.db.Collection(productsCollection).Indexes().CreateMany(ctx, productIdx); err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	slog.Debug("MongoDB indexes ensured", "database", s.db.Name())
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case err == mongo.ErrNoDocuments:
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
