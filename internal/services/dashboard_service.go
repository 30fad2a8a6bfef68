package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
)

type StatsTicketRepository interface {
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[models.TicketStatus]int64, error)
	TopCategories(ctx context.Context, limit int64) ([]models.CategoryCount, error)
}

type StatsUserRepository interface {
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
}

type StatsCategoryRepository interface {
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
}

// DashboardService computes admin reporting stats. Everything is derived from
// the current store contents on every call; nothing is cached.
type DashboardService struct {
	ticketRepo   StatsTicketRepository
	userRepo     StatsUserRepository
	categoryRepo StatsCategoryRepository
}

func NewDashboardService(ticketRepo StatsTicketRepository, userRepo StatsUserRepository, categoryRepo StatsCategoryRepository) *DashboardService {
	return &DashboardService{ticketRepo: ticketRepo, userRepo: userRepo, categoryRepo: categoryRepo}
}

func (s *DashboardService) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalTickets, err := s.ticketRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalCategories, err := s.categoryRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	ticketsByStatus, err := s.ticketRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	usersByRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	topCategories, err := s.ticketRepo.TopCategories(ctx, 5)
	if err != nil {
		return nil, err
	}
	for i := range topCategories {
		id, err := primitive.ObjectIDFromHex(topCategories[i].CategoryID)
		if err != nil {
			continue
		}
		if category, err := s.categoryRepo.GetByID(ctx, id); err == nil {
			topCategories[i].Name = category.Name
		}
	}

	return &models.DashboardStats{
		TotalUsers:      totalUsers,
		TotalTickets:    totalTickets,
		TotalCategories: totalCategories,
		TicketsByStatus: ticketsByStatus,
		UsersByRole:     usersByRole,
		TopCategories:   topCategories,
	}, nil
}
