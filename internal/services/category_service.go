package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
)

const activeCategoriesCacheKey = "categories:active"

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	GetAll(ctx context.Context) ([]models.Category, error)
	GetActive(ctx context.Context) ([]models.Category, error)
	NameExists(ctx context.Context, name string, excludeID primitive.ObjectID) (bool, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CategoryTicketCounter interface {
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
}

// CategoryCache is the slice of utils.RedisClient the service needs.
type CategoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type CategoryService struct {
	repo       CategoryRepository
	ticketRepo CategoryTicketCounter
	cache      CategoryCache
}

func NewCategoryService(repo CategoryRepository, ticketRepo CategoryTicketCounter, cache CategoryCache) *CategoryService {
	return &CategoryService{repo: repo, ticketRepo: ticketRepo, cache: cache}
}

// GetActive serves the public category list through the cache.
func (s *CategoryService) GetActive(ctx context.Context) ([]models.Category, error) {
	if s.cache != nil {
		var cached []models.Category
		if err := s.cache.Get(ctx, activeCategoriesCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	categories, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeCategoriesCacheKey, categories, 5*time.Minute); err != nil {
			log.Printf("[CACHE] Failed to cache active categories: %v", err)
		}
	}
	return categories, nil
}

func (s *CategoryService) GetAll(ctx context.Context) ([]models.Category, error) {
	return s.repo.GetAll(ctx)
}

func (s *CategoryService) Create(ctx context.Context, category *models.Category) error {
	category.Normalize()
	if err := category.Validate(); err != nil {
		return err
	}

	exists, err := s.repo.NameExists(ctx, category.Name, primitive.NilObjectID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: category %q already exists", models.ErrDuplicate, category.Name)
	}

	category.Active = true
	if err := s.repo.Create(ctx, category); err != nil {
		return err
	}
	s.clearCache(ctx)
	return nil
}

func (s *CategoryService) Update(ctx context.Context, id primitive.ObjectID, category *models.Category) (*models.Category, error) {
	category.Normalize()
	if err := category.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	exists, err := s.repo.NameExists(ctx, category.Name, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: category %q already exists", models.ErrDuplicate, category.Name)
	}

	fields := bson.M{
		"name":        category.Name,
		"description": category.Description,
		"color":       category.Color,
		"active":      category.Active,
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	s.clearCache(ctx)
	return s.repo.GetByID(ctx, id)
}

// Delete hard-removes a category unless any ticket still references it.
func (s *CategoryService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.ticketRepo.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category is used by tickets, deactivate instead", models.ErrInUse)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.clearCache(ctx)
	return nil
}

func (s *CategoryService) clearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeCategoriesCacheKey); err != nil {
		log.Printf("[CACHE] Failed to invalidate category cache: %v", err)
	}
}
