package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pos-backoffice/models"
)

type mongoOrders struct {
	collection *mongo.Collection
}

func (r *mongoOrders) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, order)
	return translate(err)
}

func (r *mongoOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *mongoOrders) List(ctx context.Context) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orderList := []models.Order{}
	if err = cursor.All(ctx, &orderList); err != nil {
		return nil, err
	}
	return orderList, nil
}

func (r *mongoOrders) Replace(ctx context.Context, order *models.Order, updatedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "updated_at": updatedAt}, order)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrStale(ctx, order.ID)
	}
	return nil
}

func (r *mongoOrders) Delete(ctx context.Context, id primitive.ObjectID, updatedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "updated_at": updatedAt})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return r.missOrStale(ctx, id)
	}
	return nil
}

// missOrStale tells a vanished order from one that changed under a
// conditional write.
func (r *mongoOrders) missOrStale(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStale
}

func (r *mongoOrders) HasPendingWithProduct(ctx context.Context, productID primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"items.product_id": productID, "status": models.OrderPending}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
