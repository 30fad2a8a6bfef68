package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/utils"
)

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

func AllStatuses() []TicketStatus {
	return []TicketStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

type Attachment struct {
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	Path         string             `bson:"path" json:"path"`
	Size         int64              `bson:"size" json:"size"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
}

// Comment lives inside its ticket document; it has no collection of its own.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Internal  bool               `bson:"internal" json:"internal"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type Ticket struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Subject     string               `bson:"subject" json:"subject" validate:"required,min=5,max=200"`
	Description string               `bson:"description" json:"description" validate:"required,min=10"`
	CategoryID  primitive.ObjectID   `bson:"category_id" json:"category_id"`
	Status      TicketStatus         `bson:"status" json:"status"`
	Priority    TicketPriority       `bson:"priority" json:"priority"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	AssignedTo  *primitive.ObjectID  `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	Attachments []Attachment         `bson:"attachments" json:"attachments"`
	Comments    []Comment            `bson:"comments" json:"comments"`
	Upvotes     []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	Downvotes   []primitive.ObjectID `bson:"downvotes" json:"downvotes"`
	Tags        []string             `bson:"tags" json:"tags"`
	Urgent      bool                 `bson:"urgent" json:"urgent"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	ResolvedAt  *time.Time           `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ClosedAt    *time.Time           `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

func (t *Ticket) Validate() error {
	validate := utils.GetValidator()
	if err := validate.Struct(t); err != nil {
		errs := utils.ParseErrors(err)
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, " // "))
	}
	return nil
}

func (t *Ticket) VoteScore() int {
	return len(t.Upvotes) - len(t.Downvotes)
}

func (t *Ticket) IsAssignedTo(userID primitive.ObjectID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// SetStatus assigns the new status and stamps ResolvedAt/ClosedAt on the first
// entry into resolved/closed. The stamps are never cleared or overwritten,
// even if the status later cycles away and back.
func (t *Ticket) SetStatus(status TicketStatus, now time.Time) {
	t.Status = status
	if status == StatusResolved && t.ResolvedAt == nil {
		at := now
		t.ResolvedAt = &at
	}
	if status == StatusClosed && t.ClosedAt == nil {
		at := now
		t.ClosedAt = &at
	}
}

// ToggleVote applies a single up/down vote as an idempotent toggle: voting the
// same direction twice removes the vote, voting the opposite direction moves
// it. A user id is never present in both sets at once.
func (t *Ticket) ToggleVote(userID primitive.ObjectID, direction VoteDirection) {
	switch direction {
	case VoteUp:
		if containsID(t.Upvotes, userID) {
			t.Upvotes = removeID(t.Upvotes, userID)
			return
		}
		t.Downvotes = removeID(t.Downvotes, userID)
		t.Upvotes = append(t.Upvotes, userID)
	case VoteDown:
		if containsID(t.Downvotes, userID) {
			t.Downvotes = removeID(t.Downvotes, userID)
			return
		}
		t.Upvotes = removeID(t.Upvotes, userID)
		t.Downvotes = append(t.Downvotes, userID)
	}
}

// VisibleComments strips internal comments for requesters who are not staff.
func (t *Ticket) VisibleComments(role Role) []Comment {
	if role.IsStaff() {
		return t.Comments
	}
	visible := make([]Comment, 0, len(t.Comments))
	for _, c := range t.Comments {
		if !c.Internal {
			visible = append(visible, c)
		}
	}
	return visible
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
