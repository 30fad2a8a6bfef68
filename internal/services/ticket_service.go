package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	Find(ctx context.Context, filter bson.M, page, limit int64, sortBy string, sortOrder int) ([]models.Ticket, int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error
	SetVotes(ctx context.Context, id primitive.ObjectID, upvotes, downvotes []primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CategoryGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type TicketService struct {
	repo         TicketRepository
	categoryRepo CategoryGetter
	userRepo     UserGetter
	notifier     Notifier
}

func NewTicketService(repo TicketRepository, categoryRepo CategoryGetter, userRepo UserGetter, notifier Notifier) *TicketService {
	return &TicketService{repo: repo, categoryRepo: categoryRepo, userRepo: userRepo, notifier: notifier}
}

// TicketInput carries the create-ticket request.
type TicketInput struct {
	Subject     string
	Description string
	CategoryID  string
	Priority    string
	Tags        []string
	Urgent      bool
	DueDate     *time.Time
}

func (s *TicketService) Create(ctx context.Context, requester models.AuthUser, input TicketInput, attachments []models.Attachment) (*models.Ticket, error) {
	categoryID, err := primitive.ObjectIDFromHex(input.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed category id", models.ErrInvalidID)
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.Active {
		return nil, fmt.Errorf("%w: category %q is deactivated", models.ErrValidation, category.Name)
	}

	priority := models.PriorityMedium
	if input.Priority != "" {
		priority = models.TicketPriority(input.Priority)
		if !priority.IsValid() {
			return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, input.Priority)
		}
	}

	ticket := &models.Ticket{
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		CategoryID:  categoryID,
		Status:      models.StatusOpen,
		Priority:    priority,
		CreatedBy:   requester.ID,
		Attachments: attachments,
		Tags:        input.Tags,
		Urgent:      input.Urgent,
		DueDate:     input.DueDate,
	}

	if err := ticket.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// TicketFilter carries the list-tickets query.
type TicketFilter struct {
	Status       string
	Priority     string
	Category     string
	CreatedBy    string
	AssignedToMe bool
	Search       string
	Page         int64
	Limit        int64
	SortBy       string
	SortOrder    string
}

var ticketSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"priority":   true,
	"status":     true,
	"subject":    true,
	"due_date":   true,
}

// List scopes plain users to their own tickets; staff see everything.
func (s *TicketService) List(ctx context.Context, requester models.AuthUser, f TicketFilter) ([]models.Ticket, int64, error) {
	filter := bson.M{}

	if !requester.Role.IsStaff() {
		filter["created_by"] = requester.ID
	}
	if f.AssignedToMe {
		filter["assigned_to"] = requester.ID
	}
	if f.Status != "" {
		status := models.TicketStatus(f.Status)
		if !status.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", models.ErrValidation, f.Status)
		}
		filter["status"] = status
	}
	if f.Priority != "" {
		priority := models.TicketPriority(f.Priority)
		if !priority.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, f.Priority)
		}
		filter["priority"] = priority
	}
	if f.Category != "" {
		categoryID, err := primitive.ObjectIDFromHex(f.Category)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed category id", models.ErrInvalidID)
		}
		filter["category_id"] = categoryID
	}
	if f.CreatedBy != "" && requester.Role.IsStaff() {
		creatorID, err := primitive.ObjectIDFromHex(f.CreatedBy)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed user id", models.ErrInvalidID)
		}
		filter["created_by"] = creatorID
	}
	if f.Search != "" {
		// Literal substring match; regex metacharacters in the query are escaped.
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"subject": pattern},
			bson.M{"description": pattern},
		}
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sortBy := f.SortBy
	if !ticketSortFields[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := -1
	if f.SortOrder == "asc" {
		sortOrder = 1
	}

	tickets, total, err := s.repo.Find(ctx, filter, page, limit, sortBy, sortOrder)
	if err != nil {
		return nil, 0, err
	}

	for i := range tickets {
		tickets[i].Comments = tickets[i].VisibleComments(requester.Role)
	}
	return tickets, total, nil
}

func (s *TicketService) Get(ctx context.Context, requester models.AuthUser, id primitive.ObjectID) (*models.Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	caps := models.ComputeCapabilities(requester, ticket)
	if !caps.CanRead {
		return nil, models.ErrForbidden
	}

	ticket.Comments = ticket.VisibleComments(requester.Role)
	return ticket, nil
}

// TicketUpdate carries the updatable fields; nil means leave unchanged.
// AssignedTo set to the empty string unassigns the ticket.
type TicketUpdate struct {
	Subject     *string
	Description *string
	CategoryID  *string
	Tags        *[]string
	Urgent      *bool
	DueDate     *time.Time
	Status      *string
	Priority    *string
	AssignedTo  *string
}

// Update applies field-level authorization: basic fields need CanWriteBasic,
// workflow fields need CanWriteWorkflow and are silently ignored otherwise.
// A requester with no capability at all is rejected before any field is read.
func (s *TicketService) Update(ctx context.Context, requester models.AuthUser, id primitive.ObjectID, update TicketUpdate) (*models.Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	caps := models.ComputeCapabilities(requester, ticket)
	if !caps.CanRead {
		return nil, models.ErrForbidden
	}

	fields := bson.M{}
	statusChanged := false
	var assignedUser *models.User

	if caps.CanWriteBasic {
		if update.Subject != nil {
			subject := strings.TrimSpace(*update.Subject)
			// Rune counts, matching the validator bounds on create.
			if n := utf8.RuneCountInString(subject); n < 5 || n > 200 {
				return nil, fmt.Errorf("%w: Subject length must be between 5 and 200", models.ErrValidation)
			}
			fields["subject"] = subject
		}
		if update.Description != nil {
			description := strings.TrimSpace(*update.Description)
			if utf8.RuneCountInString(description) < 10 {
				return nil, fmt.Errorf("%w: Description length must be greater than or equal to 10", models.ErrValidation)
			}
			fields["description"] = description
		}
		if update.CategoryID != nil {
			categoryID, err := primitive.ObjectIDFromHex(*update.CategoryID)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed category id", models.ErrInvalidID)
			}
			if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
				return nil, err
			}
			fields["category_id"] = categoryID
		}
		if update.Tags != nil {
			fields["tags"] = *update.Tags
		}
		if update.Urgent != nil {
			fields["urgent"] = *update.Urgent
		}
		if update.DueDate != nil {
			fields["due_date"] = *update.DueDate
		}
	}

	if caps.CanWriteWorkflow {
		if update.Status != nil {
			status := models.TicketStatus(*update.Status)
			if !status.IsValid() {
				return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *update.Status)
			}
			if status != ticket.Status {
				statusChanged = true
			}
			ticket.SetStatus(status, time.Now())
			fields["status"] = ticket.Status
			if ticket.ResolvedAt != nil {
				fields["resolved_at"] = *ticket.ResolvedAt
			}
			if ticket.ClosedAt != nil {
				fields["closed_at"] = *ticket.ClosedAt
			}
		}
		if update.Priority != nil {
			priority := models.TicketPriority(*update.Priority)
			if !priority.IsValid() {
				return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, *update.Priority)
			}
			fields["priority"] = priority
		}
		if update.AssignedTo != nil {
			if *update.AssignedTo == "" {
				fields["assigned_to"] = nil
			} else {
				assigneeID, err := primitive.ObjectIDFromHex(*update.AssignedTo)
				if err != nil {
					return nil, fmt.Errorf("%w: malformed user id", models.ErrInvalidID)
				}
				assignee, err := s.userRepo.GetByID(ctx, assigneeID)
				if err != nil {
					return nil, err
				}
				// Re-assigning the current assignee is a no-op, no email.
				if !ticket.IsAssignedTo(assigneeID) {
					fields["assigned_to"] = assigneeID
					assignedUser = assignee
				}
			}
		}
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	if statusChanged && s.notifier != nil {
		if creator, err := s.userRepo.GetByID(ctx, ticket.CreatedBy); err == nil {
			s.notifier.TicketStatusChanged(creator.Email, ticket.Subject, string(ticket.Status))
		}
	}
	if assignedUser != nil && s.notifier != nil {
		s.notifier.TicketAssigned(assignedUser.Email, ticket.Subject)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Comments = updated.VisibleComments(requester.Role)
	return updated, nil
}

// AddComment appends a comment. Marking it internal requires a staff author.
func (s *TicketService) AddComment(ctx context.Context, requester models.AuthUser, id primitive.ObjectID, content string, internal bool) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: Content field is required", models.ErrValidation)
	}

	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	caps := models.ComputeCapabilities(requester, ticket)
	if !caps.CanRead {
		return nil, models.ErrForbidden
	}
	if internal && !models.CanPostInternal(requester) {
		return nil, fmt.Errorf("%w: only agents can post internal comments", models.ErrForbidden)
	}

	now := time.Now()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Content:   content,
		Author:    requester.ID,
		Internal:  internal,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.AddComment(ctx, id, comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

type VoteResult struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
}

// Vote toggles the requester's vote. Any authenticated user may vote on any
// ticket, including their own.
func (s *TicketService) Vote(ctx context.Context, requester models.AuthUser, id primitive.ObjectID, direction models.VoteDirection) (*VoteResult, error) {
	if direction != models.VoteUp && direction != models.VoteDown {
		return nil, fmt.Errorf("%w: unknown vote direction %q", models.ErrValidation, direction)
	}

	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ticket.ToggleVote(requester.ID, direction)

	if err := s.repo.SetVotes(ctx, id, ticket.Upvotes, ticket.Downvotes); err != nil {
		return nil, err
	}

	return &VoteResult{
		Upvotes:   len(ticket.Upvotes),
		Downvotes: len(ticket.Downvotes),
		Score:     ticket.VoteScore(),
	}, nil
}

// Delete hard-removes a ticket; admin only.
func (s *TicketService) Delete(ctx context.Context, requester models.AuthUser, id primitive.ObjectID) error {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	caps := models.ComputeCapabilities(requester, ticket)
	if !caps.CanDelete {
		return models.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
