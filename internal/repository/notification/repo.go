package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/igronus/notify/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

const collectionName = "notifications"

// indexName is the compound index backing FindDue: recipient, status, time.
const indexName = "clientId_status_time_idx"

// Repository provides access to the notifications collection.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository creates a new notification repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the compound index used by the due-notification
// query. Safe to call on every startup; creation is idempotent.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "clientId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "time", Value: 1},
		},
		Options: options.Index().SetName(indexName),
	})
	if err != nil {
		return fmt.Errorf("failed to ensure index %s: %w", indexName, err)
	}

	return nil
}

// Insert stores a new notification. The id is assigned by the caller and
// duplicate ids are rejected by the unique _id constraint.
func (r *Repository) Insert(ctx context.Context, notification model.Notification) error {
	if _, err := r.coll.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// InsertBatch stores notifications in bulk, unordered so one failing
// document does not abort the rest of the batch.
func (r *Repository) InsertBatch(ctx context.Context, notifications []model.Notification) (int, error) {
	docs := make([]any, 0, len(notifications))
	for _, n := range notifications {
		docs = append(docs, n)
	}

	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil && err != nil {
		return len(res.InsertedIDs), fmt.Errorf("failed to insert batch: %w", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	return len(res.InsertedIDs), nil
}

// GetByID retrieves a notification by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (model.Notification, error) {
	var n model.Notification

	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// GetStatusByID retrieves only the status of a notification by its ID,
// projecting out the rest of the document.
func (r *Repository) GetStatusByID(ctx context.Context, id string) (model.Status, error) {
	var doc struct {
		Status model.Status `bson:"status"`
	}

	opts := options.FindOne().SetProjection(bson.M{"status": 1})

	err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to get notification status: %w", err)
	}

	return doc.Status, nil
}

// FindDue returns up to limit PENDING notifications whose delivery time has
// passed and whose recipient is in the given reachable set. Results are
// ordered by delivery time, then id, so a backlog drains deterministically
// across cycles.
func (r *Repository) FindDue(ctx context.Context, now int64, recipients []string, limit int64) ([]model.Notification, error) {
	filter := bson.M{
		"status":   model.StatusPending,
		"time":     bson.M{"$lte": now},
		"clientId": bson.M{"$in": recipients},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "time", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []model.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode due notifications: %w", err)
	}

	return notifications, nil
}

// MarkSent flips a notification from PENDING to SENT and records the
// delivery time. The status filter makes the transition a compare-and-swap:
// a record already SENT is never touched again.
func (r *Repository) MarkSent(ctx context.Context, id string, deliveredAt time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.StatusPending},
		bson.M{"$set": bson.M{
			"status":      model.StatusSent,
			"deliveredAt": deliveredAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// RecipientStats summarizes notification volume for a single recipient.
type RecipientStats struct {
	RecipientID string `bson:"clientId" json:"recipientId"`
	Total       int64  `bson:"totalNotifications" json:"totalNotifications"`
	Pending     int64  `bson:"pendingNotifications" json:"pendingNotifications"`
	Sent        int64  `bson:"sentNotifications" json:"sentNotifications"`
}

// TopRecipients returns the recipients with the most notifications,
// with per-status breakdowns, ordered by total descending.
func (r *Repository) TopRecipients(ctx context.Context, limit int64) ([]RecipientStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":                "$clientId",
			"totalNotifications": bson.M{"$sum": 1},
			"pendingNotifications": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", model.StatusPending}}, 1, 0},
			}},
			"sentNotifications": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", model.StatusSent}}, 1, 0},
			}},
		}}},
		{{Key: "$sort", Value: bson.M{"totalNotifications": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"_id":                  0,
			"clientId":             "$_id",
			"totalNotifications":   1,
			"pendingNotifications": 1,
			"sentNotifications":    1,
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate recipient stats: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []RecipientStats
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode recipient stats: %w", err)
	}

	return stats, nil
}
