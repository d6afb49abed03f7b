package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pos-backoffice/apperr"
	"pos-backoffice/media"
	"pos-backoffice/models"
	"pos-backoffice/store"
)

type ProductService struct {
	store  store.Store
	images uploader
	now    func() time.Time
}

func NewProductService(st store.Store, images media.Store) *ProductService {
	return &ProductService{store: st, images: uploader{store: images}, now: time.Now}
}

func (s *ProductService) Create(ctx context.Context, req models.ProductRequest, adminID primitive.ObjectID, image *multipart.FileHeader) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("Product name is required")
	}
	if req.Price == nil || *req.Price < 0 {
		return nil, apperr.Validation("Price must be a non-negative number")
	}
	if req.Quantity < 0 {
		return nil, apperr.Validation("Quantity cannot be negative")
	}

	imageURL, err := s.images.upload(ctx, image, media.FolderProducts)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Brand:       req.Brand,
		Category:    req.Category,
		Price:       *req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
		ImageURL:    imageURL,
		CreatedBy:   adminID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, apperr.Internal("Failed to create product", err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	products, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	product, err := s.store.Products().FindByID(ctx, oid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch product", err)
	}
	return product, nil
}

// Update edits descriptive fields and, when given, the stock quantity. The
// quantity is set with a compare-and-set against the value read here, so a
// concurrent order completion is never overwritten.
func (s *ProductService) Update(ctx context.Context, id string, upd models.ProductUpdate, image *multipart.FileHeader) (*models.Product, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperr.Validation("Product name cannot be empty")
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, apperr.Validation("Price must be a non-negative number")
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return nil, apperr.Validation("Quantity cannot be negative")
	}

	imageURL, err := s.images.upload(ctx, image, media.FolderProducts)
	if err != nil {
		return nil, err
	}
	if imageURL != "" {
		upd.ImageURL = &imageURL
	}

	var product *models.Product
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.store.Products().FindByID(ctx, oid)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Product")
		}
		if err != nil {
			return apperr.Internal("Failed to fetch product", err)
		}

		if upd.Quantity != nil && *upd.Quantity != current.Quantity {
			err := s.store.Products().ReplaceQuantity(ctx, oid, current.Quantity, *upd.Quantity)
			if errors.Is(err, store.ErrStale) {
				return apperr.Conflict("Stock for this product changed, reload and try again")
			}
			if err != nil {
				return apperr.Internal("Failed to update product", err)
			}
		}

		product, err = s.store.Products().Update(ctx, oid, upd)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Product")
		}
		if err != nil {
			return apperr.Internal("Failed to update product", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, "Failed to update product")
	}
	return product, nil
}

// Delete removes a product unless a Pending order still needs it.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "product")
	if err != nil {
		return err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		pending, err := s.store.Orders().HasPendingWithProduct(ctx, oid)
		if err != nil {
			return apperr.Internal("Failed to delete product", err)
		}
		if pending {
			return apperr.Conflict("Product is part of a pending order")
		}

		err = s.store.Products().Delete(ctx, oid)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Product")
		}
		if err != nil {
			return apperr.Internal("Failed to delete product", err)
		}
		return nil
	})
	return wrapInternal(err, "Failed to delete product")
}
