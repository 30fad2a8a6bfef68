package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
)

type ticketFixture struct {
	service      *TicketService
	ticketRepo   *fakeTicketRepo
	categoryRepo *fakeCategoryRepo
	userRepo     *fakeUserRepo
	notifier     *fakeNotifier

	owner    models.AuthUser
	agent    models.AuthUser
	admin    models.AuthUser
	stranger models.AuthUser
	category *models.Category
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	ctx := context.Background()

	f := &ticketFixture{
		ticketRepo:   newFakeTicketRepo(),
		categoryRepo: newFakeCategoryRepo(),
		userRepo:     newFakeUserRepo(),
		notifier:     &fakeNotifier{},
	}
	f.service = NewTicketService(f.ticketRepo, f.categoryRepo, f.userRepo, f.notifier)

	newUser := func(name string, role models.Role) models.AuthUser {
		u := &models.User{Name: name, Email: name + "@example.com", Password: "secret1", Role: role, Active: true}
		require.NoError(t, f.userRepo.Create(ctx, u))
		return models.AuthUser{ID: u.ID, Role: role}
	}
	f.owner = newUser("owner", models.RoleUser)
	f.agent = newUser("agent", models.RoleAgent)
	f.admin = newUser("admin", models.RoleAdmin)
	f.stranger = newUser("stranger", models.RoleUser)

	f.category = &models.Category{Name: "Billing", Color: "#3B82F6", Active: true}
	require.NoError(t, f.categoryRepo.Create(ctx, f.category))

	return f
}

func (f *ticketFixture) createTicket(t *testing.T) *models.Ticket {
	t.Helper()
	ticket, err := f.service.Create(context.Background(), f.owner, TicketInput{
		Subject:     "Printer is on fire",
		Description: "The office printer on floor 3 is literally on fire.",
		CategoryID:  f.category.ID.Hex(),
	}, nil)
	require.NoError(t, err)
	return ticket
}

func strPtr(s string) *string { return &s }

func TestTicketCreate_Defaults(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	assert.Equal(t, models.StatusOpen, ticket.Status)
	assert.Equal(t, models.PriorityMedium, ticket.Priority)
	assert.Equal(t, f.owner.ID, ticket.CreatedBy)
	assert.Nil(t, ticket.AssignedTo)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ClosedAt)
}

func TestTicketCreate_CollectsAllViolations(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.service.Create(context.Background(), f.owner, TicketInput{
		Subject:     "Hi",
		Description: "short",
		CategoryID:  f.category.ID.Hex(),
	}, nil)
	require.ErrorIs(t, err, models.ErrValidation)
	// Both field violations must be reported, not just the first.
	assert.Contains(t, err.Error(), "Subject")
	assert.Contains(t, err.Error(), "Description")
}

func TestTicketCreate_InactiveCategoryRejected(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	inactive := &models.Category{Name: "Legacy", Color: "#888888", Active: false}
	require.NoError(t, f.categoryRepo.Create(ctx, inactive))

	_, err := f.service.Create(ctx, f.owner, TicketInput{
		Subject:     "Printer is on fire",
		Description: "The office printer on floor 3 is literally on fire.",
		CategoryID:  inactive.ID.Hex(),
	}, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTicketCreate_UnknownCategory(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.service.Create(context.Background(), f.owner, TicketInput{
		Subject:     "Printer is on fire",
		Description: "The office printer on floor 3 is literally on fire.",
		CategoryID:  primitive.NewObjectID().Hex(),
	}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTicketUpdate_OwnerWorkflowFieldsSilentlyIgnored(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	updated, err := f.service.Update(context.Background(), f.owner, ticket.ID, TicketUpdate{
		Subject:  strPtr("Printer fire resolved itself"),
		Status:   strPtr("resolved"),
		Priority: strPtr("urgent"),
	})
	require.NoError(t, err)

	// Basic field applied, workflow fields untouched.
	assert.Equal(t, "Printer fire resolved itself", updated.Subject)
	assert.Equal(t, models.StatusOpen, updated.Status)
	assert.Equal(t, models.PriorityMedium, updated.Priority)
	assert.Nil(t, updated.ResolvedAt)
}

func TestTicketUpdate_SubjectBoundsCountRunes(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	// Two runes but six bytes; must fail the 5-rune minimum.
	_, err := f.service.Update(ctx, f.owner, ticket.ID, TicketUpdate{Subject: strPtr("日本")})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Five multibyte runes pass, same as on create.
	updated, err := f.service.Update(ctx, f.owner, ticket.ID, TicketUpdate{Subject: strPtr("принтер")})
	require.NoError(t, err)
	assert.Equal(t, "принтер", updated.Subject)

	// 200 multibyte runes are within bounds even at 400 bytes; 201 are not.
	_, err = f.service.Update(ctx, f.owner, ticket.ID, TicketUpdate{Subject: strPtr(strings.Repeat("ñ", 200))})
	assert.NoError(t, err)
	_, err = f.service.Update(ctx, f.owner, ticket.ID, TicketUpdate{Subject: strPtr(strings.Repeat("ñ", 201))})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTicketUpdate_StrangerRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Update(context.Background(), f.stranger, ticket.ID, TicketUpdate{
		Subject: strPtr("Should never be applied"),
	})
	assert.ErrorIs(t, err, models.ErrForbidden)

	unchanged, getErr := f.ticketRepo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Printer is on fire", unchanged.Subject)
}

func TestTicketUpdate_ResolvedAtStampedOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	resolved, err := f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("resolved")})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	firstStamp := *resolved.ResolvedAt

	_, err = f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("open")})
	require.NoError(t, err)

	again, err := f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("resolved")})
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, again.ResolvedAt.Equal(firstStamp), "ResolvedAt must keep the first stamp")
}

func TestTicketUpdate_ClosedDirectlyFromOpen(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	closed, err := f.service.Update(context.Background(), f.agent, ticket.ID, TicketUpdate{Status: strPtr("closed")})
	require.NoError(t, err)
	assert.NotNil(t, closed.ClosedAt)
	assert.Nil(t, closed.ResolvedAt)
}

func TestTicketUpdate_AssigneeGainsWorkflowAccess(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	// A plain user gets assigned by an agent and can then work the ticket.
	assigneeUser := &models.User{Name: "worker", Email: "worker@example.com", Password: "secret1", Role: models.RoleUser, Active: true}
	require.NoError(t, f.userRepo.Create(ctx, assigneeUser))
	assignee := models.AuthUser{ID: assigneeUser.ID, Role: models.RoleUser}

	_, err := f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{AssignedTo: strPtr(assigneeUser.ID.Hex())})
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, assignee, ticket.ID, TicketUpdate{Status: strPtr("in_progress")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestTicketUpdate_Notifications(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	agentUser, err := f.userRepo.GetByID(ctx, f.agent.ID)
	require.NoError(t, err)

	_, err = f.service.Update(ctx, f.admin, ticket.ID, TicketUpdate{
		Status:     strPtr("in_progress"),
		AssignedTo: strPtr(f.agent.ID.Hex()),
	})
	require.NoError(t, err)

	require.Len(t, f.notifier.statusChanges, 1)
	assert.Equal(t, "owner@example.com", f.notifier.statusChanges[0].To)
	assert.Equal(t, "in_progress", f.notifier.statusChanges[0].Status)

	require.Len(t, f.notifier.assignments, 1)
	assert.Equal(t, agentUser.Email, f.notifier.assignments[0].To)
}

func TestTicketUpdate_SameStatusNoNotification(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Update(context.Background(), f.agent, ticket.ID, TicketUpdate{Status: strPtr("open")})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.statusChanges)
}

func TestTicketUpdate_SameAssigneeNoNotification(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	_, err := f.service.Update(ctx, f.admin, ticket.ID, TicketUpdate{AssignedTo: strPtr(f.agent.ID.Hex())})
	require.NoError(t, err)
	require.Len(t, f.notifier.assignments, 1)

	_, err = f.service.Update(ctx, f.admin, ticket.ID, TicketUpdate{AssignedTo: strPtr(f.agent.ID.Hex())})
	require.NoError(t, err)
	assert.Len(t, f.notifier.assignments, 1, "re-assigning the current assignee must not re-email them")
}

func TestTicketUpdate_UnknownAssigneeRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Update(context.Background(), f.agent, ticket.ID, TicketUpdate{
		AssignedTo: strPtr(primitive.NewObjectID().Hex()),
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddComment_InternalRequiresStaff(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	comment, err := f.service.AddComment(ctx, f.agent, ticket.ID, "checked the logs", true)
	require.NoError(t, err)
	assert.True(t, comment.Internal)
	assert.Equal(t, f.agent.ID, comment.Author)

	_, err = f.service.AddComment(ctx, f.owner, ticket.ID, "me too", true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// The owner may still post a regular comment.
	_, err = f.service.AddComment(ctx, f.owner, ticket.ID, "any update?", false)
	assert.NoError(t, err)
}

func TestAddComment_EmptyContentRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.AddComment(context.Background(), f.owner, ticket.ID, "   ", false)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAddComment_StrangerRejected(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.AddComment(context.Background(), f.stranger, ticket.ID, "drive-by comment", false)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestVote_ToggleThroughService(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	// The creator may vote on their own ticket.
	result, err := f.service.Vote(ctx, f.owner, ticket.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upvotes)
	assert.Equal(t, 1, result.Score)

	// Same direction again removes the vote.
	result, err = f.service.Vote(ctx, f.owner, ticket.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Upvotes)
	assert.Equal(t, 0, result.Score)

	// Up then down moves the vote.
	_, err = f.service.Vote(ctx, f.stranger, ticket.ID, models.VoteUp)
	require.NoError(t, err)
	result, err = f.service.Vote(ctx, f.stranger, ticket.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Upvotes)
	assert.Equal(t, 1, result.Downvotes)
	assert.Equal(t, -1, result.Score)
}

func TestVote_UnknownDirection(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Vote(context.Background(), f.owner, ticket.ID, models.VoteDirection("sideways"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGet_StripsInternalCommentsForOwner(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	_, err := f.service.AddComment(ctx, f.agent, ticket.ID, "internal note", true)
	require.NoError(t, err)
	_, err = f.service.AddComment(ctx, f.agent, ticket.ID, "public reply", false)
	require.NoError(t, err)

	forOwner, err := f.service.Get(ctx, f.owner, ticket.ID)
	require.NoError(t, err)
	require.Len(t, forOwner.Comments, 1)
	assert.Equal(t, "public reply", forOwner.Comments[0].Content)

	forAgent, err := f.service.Get(ctx, f.agent, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, forAgent.Comments, 2)
}

func TestGet_StrangerForbidden(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Get(context.Background(), f.stranger, ticket.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDelete_AdminOnly(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.Delete(ctx, f.owner, ticket.ID), models.ErrForbidden)
	assert.ErrorIs(t, f.service.Delete(ctx, f.agent, ticket.ID), models.ErrForbidden)

	require.NoError(t, f.service.Delete(ctx, f.admin, ticket.ID))
	_, err := f.ticketRepo.GetByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestList_PlainUserScopedToOwnTickets(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	f.createTicket(t)
	_, err := f.service.Create(ctx, f.stranger, TicketInput{
		Subject:     "Cannot log into the VPN",
		Description: "The VPN client rejects my credentials since this morning.",
		CategoryID:  f.category.ID.Hex(),
	}, nil)
	require.NoError(t, err)

	mine, total, err := f.service.List(ctx, f.owner, TicketFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, f.owner.ID, mine[0].CreatedBy)

	all, total, err := f.service.List(ctx, f.agent, TicketFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}

// Full walk through the triage scenario: create, internal comments, resolve,
// reopen, resolve again.
func TestTicketLifecycleScenario(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket := f.createTicket(t)
	assert.Equal(t, models.StatusOpen, ticket.Status)
	assert.Equal(t, models.PriorityMedium, ticket.Priority)

	_, err := f.service.AddComment(ctx, f.agent, ticket.ID, "looks like a hardware fault", true)
	require.NoError(t, err)

	_, err = f.service.AddComment(ctx, f.owner, ticket.ID, "secret owner note", true)
	require.ErrorIs(t, err, models.ErrForbidden)

	resolved, err := f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("resolved")})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	stamp := *resolved.ResolvedAt

	_, err = f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("open")})
	require.NoError(t, err)
	again, err := f.service.Update(ctx, f.agent, ticket.ID, TicketUpdate{Status: strPtr("resolved")})
	require.NoError(t, err)
	assert.True(t, again.ResolvedAt.Equal(stamp))
}
