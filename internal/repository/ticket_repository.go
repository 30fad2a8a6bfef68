package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helpdesk-app/internal/models"
)

type TicketRepository struct {
	col *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{col: db.Collection("tickets")}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	ticket.ID = primitive.NewObjectID()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if ticket.Attachments == nil {
		ticket.Attachments = []models.Attachment{}
	}
	if ticket.Comments == nil {
		ticket.Comments = []models.Comment{}
	}
	if ticket.Upvotes == nil {
		ticket.Upvotes = []primitive.ObjectID{}
	}
	if ticket.Downvotes == nil {
		ticket.Downvotes = []primitive.ObjectID{}
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	_, err := r.col.InsertOne(ctx, ticket)
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepository) Find(ctx context.Context, filter bson.M, page, limit int64, sortBy string, sortOrder int) ([]models.Ticket, int64, error) {
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip((page - 1) * limit).
		SetLimit(limit).
		SetSort(bson.D{{Key: sortBy, Value: sortOrder}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var tickets []models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, 0, err
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	return tickets, total, nil
}

func (r *TicketRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddComment appends to the embedded comment array in a single document update.
func (r *TicketRepository) AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetVotes overwrites both vote sets at once so they stay disjoint in the
// stored document.
func (r *TicketRepository) SetVotes(ctx context.Context, id primitive.ObjectID, upvotes, downvotes []primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"upvotes":    upvotes,
			"downvotes":  downvotes,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *TicketRepository) CountByCreator(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"created_by": userID})
}

func (r *TicketRepository) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"category_id": categoryID})
}

func (r *TicketRepository) CountByStatus(ctx context.Context) (map[models.TicketStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.TicketStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.TicketStatus]int64, 4)
	for _, status := range models.AllStatuses() {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// TopCategories returns category ids ranked by ticket count descending.
func (r *TicketRepository) TopCategories(ctx context.Context, limit int64) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category_id", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		CategoryID primitive.ObjectID `bson:"_id"`
		Count      int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	result := make([]models.CategoryCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.CategoryCount{
			CategoryID: row.CategoryID.Hex(),
			Count:      row.Count,
		})
	}
	return result, nil
}
