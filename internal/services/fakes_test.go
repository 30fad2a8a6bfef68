package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
	"helpdesk-app/internal/utils"
)

// In-memory stand-ins for the Mongo repositories. They only apply the update
// keys the services actually write.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]*models.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[primitive.ObjectID]*models.Ticket{}}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = primitive.NewObjectID()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) Find(ctx context.Context, filter bson.M, page, limit int64, sortBy string, sortOrder int) ([]models.Ticket, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Ticket
	for _, t := range r.tickets {
		if creator, ok := filter["created_by"].(primitive.ObjectID); ok && t.CreatedBy != creator {
			continue
		}
		if status, ok := filter["status"].(models.TicketStatus); ok && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTicketRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return models.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "subject":
			ticket.Subject = value.(string)
		case "description":
			ticket.Description = value.(string)
		case "category_id":
			ticket.CategoryID = value.(primitive.ObjectID)
		case "tags":
			ticket.Tags = value.([]string)
		case "urgent":
			ticket.Urgent = value.(bool)
		case "due_date":
			due := value.(time.Time)
			ticket.DueDate = &due
		case "status":
			ticket.Status = value.(models.TicketStatus)
		case "priority":
			ticket.Priority = value.(models.TicketPriority)
		case "assigned_to":
			if value == nil {
				ticket.AssignedTo = nil
			} else {
				assignee := value.(primitive.ObjectID)
				ticket.AssignedTo = &assignee
			}
		case "resolved_at":
			at := value.(time.Time)
			ticket.ResolvedAt = &at
		case "closed_at":
			at := value.(time.Time)
			ticket.ClosedAt = &at
		case "updated_at":
			ticket.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (r *fakeTicketRepo) AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return models.ErrNotFound
	}
	ticket.Comments = append(ticket.Comments, comment)
	return nil
}

func (r *fakeTicketRepo) SetVotes(ctx context.Context, id primitive.ObjectID, upvotes, downvotes []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return models.ErrNotFound
	}
	ticket.Upvotes = upvotes
	ticket.Downvotes = downvotes
	return nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) CountByCreator(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.tickets {
		if t.CreatedBy == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tickets)), nil
}

func (r *fakeTicketRepo) CountByStatus(ctx context.Context) (map[models.TicketStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[models.TicketStatus]int64{}
	for _, status := range models.AllStatuses() {
		counts[status] = 0
	}
	for _, t := range r.tickets {
		counts[t.Status]++
	}
	return counts, nil
}

func (r *fakeTicketRepo) TopCategories(ctx context.Context, limit int64) ([]models.CategoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCategory := map[primitive.ObjectID]int64{}
	for _, t := range r.tickets {
		byCategory[t.CategoryID]++
	}
	out := []models.CategoryCount{}
	for id, count := range byCategory {
		out = append(out, models.CategoryCount{CategoryID: id.Hex(), Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.tickets {
		if t.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

type fakeCategoryRepo struct {
	categories     map[primitive.ObjectID]*models.Category
	getActiveCalls int
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[primitive.ObjectID]*models.Category{}}
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	category.ID = primitive.NewObjectID()
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	copied := *category
	r.categories[category.ID] = &copied
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	category, ok := r.categories[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *category
	return &copied, nil
}

func (r *fakeCategoryRepo) GetAll(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range r.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCategoryRepo) GetActive(ctx context.Context) ([]models.Category, error) {
	r.getActiveCalls++
	out := []models.Category{}
	for _, c := range r.categories {
		if c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) NameExists(ctx context.Context, name string, excludeID primitive.ObjectID) (bool, error) {
	for _, c := range r.categories {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCategoryRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	category, ok := r.categories[id]
	if !ok {
		return models.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			category.Name = value.(string)
		case "description":
			category.Description = value.(string)
		case "color":
			category.Color = value.(string)
		case "active":
			category.Active = value.(bool)
		case "updated_at":
			category.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := r.categories[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r *fakeCategoryRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.categories)), nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	u.ID = primitive.NewObjectID()
	u.Email = strings.ToLower(u.Email)
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	for _, u := range r.users {
		if u.ID != excludeID && u.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(ctx context.Context, role models.Role, search string, page, limit int64) ([]models.User, int64, error) {
	out := []models.User{}
	for _, u := range r.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	user, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			user.Name = value.(string)
		case "avatar":
			user.Avatar = value.(string)
		case "password":
			user.Password = value.(string)
		case "role":
			user.Role = value.(models.Role)
		case "active":
			user.Active = value.(bool)
		case "updated_at":
			user.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := r.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	counts := map[models.Role]int64{
		models.RoleUser:  0,
		models.RoleAgent: 0,
		models.RoleAdmin: 0,
	}
	for _, u := range r.users {
		counts[u.Role]++
	}
	return counts, nil
}

type recordedMail struct {
	To      string
	Subject string
	Status  string
}

type fakeNotifier struct {
	statusChanges []recordedMail
	assignments   []recordedMail
}

func (n *fakeNotifier) TicketStatusChanged(toEmail, subject string, status string) {
	n.statusChanges = append(n.statusChanges, recordedMail{To: toEmail, Subject: subject, Status: status})
}

func (n *fakeNotifier) TicketAssigned(toEmail, subject string) {
	n.assignments = append(n.assignments, recordedMail{To: toEmail, Subject: subject})
}

// fakeCache mirrors the JSON round-trip of utils.RedisClient.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return utils.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
