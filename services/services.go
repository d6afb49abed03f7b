// Package services holds the use cases behind the HTTP handlers. Handlers
// pass the authenticated admin in explicitly; nothing here reads request
// state.
package services

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/apperr"
)

func parseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid %s ID", what)
	}
	return id, nil
}

// wrapInternal leaves categorized errors alone and wraps anything else,
// such as a failed transaction commit.
func wrapInternal(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
