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

type mongoAdmins struct {
	collection *mongo.Collection
}

func (r *mongoAdmins) Create(ctx context.Context, admin *models.Admin) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, admin)
	return translate(err)
}

func (r *mongoAdmins) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAdmins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoAdmins) findOne(ctx context.Context, filter bson.M) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var admin models.Admin
	if err := r.collection.FindOne(ctx, filter).Decode(&admin); err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (r *mongoAdmins) List(ctx context.Context) ([]models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	adminList := []models.Admin{}
	if err = cursor.All(ctx, &adminList); err != nil {
		return nil, err
	}
	return adminList, nil
}

func (r *mongoAdmins) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Admin, error) {
	set := bson.M{"updated_at": now}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.ProfileImage != nil {
		set["profile_image"] = *upd.ProfileImage
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *mongoAdmins) SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string, now time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": passwordHash, "updated_at": now}})
}

func (r *mongoAdmins) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires *time.Time) error {
	update := bson.M{"$set": bson.M{"password_reset_token": token, "password_reset_expires": expires}}
	return r.updateOne(ctx, bson.M{"_id": id}, update)
}

func (r *mongoAdmins) ClearResetToken(ctx context.Context, id primitive.ObjectID, token string) error {
	filter := bson.M{"_id": id, "password_reset_token": token}
	update := bson.M{"$unset": bson.M{"password_reset_token": "", "password_reset_expires": ""}}
	return r.updateOne(ctx, filter, update)
}

func (r *mongoAdmins) updateOne(ctx context.Context, filter, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAdmins) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAdmins) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.Admin, error) {
	filter := bson.M{
		"email_verification_token":   token,
		"email_verification_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"is_verified": true, "updated_at": now},
		"$unset": bson.M{"email_verification_token": "", "email_verification_expires": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoAdmins) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*models.Admin, error) {
	filter := bson.M{
		"password_reset_token":   token,
		"password_reset_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": now},
		"$unset": bson.M{"password_reset_token": "", "password_reset_expires": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoAdmins) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var admin models.Admin
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&admin); err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}
