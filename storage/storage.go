package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskflow-api/domain"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

// NotFoundError is returned when an id matches no record, or when an update
// modified nothing.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// NotFound marks the error for the API layer's 404 mapping.
func (NotFoundError) NotFound() {}

// Store persists tasks and user profiles in MongoDB.
type Store struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
}

// New connects to MongoDB and verifies the connection before returning, so a
// misconfigured store fails at startup rather than on the first request.
func New(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	db := client.Database(database)
	return &Store{
		client: client,
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Category    string             `bson:"category"`
	OwnerEmail  string             `bson:"userEmail"`
	OwnerName   string             `bson:"userName,omitempty"`
	OwnerPhoto  string             `bson:"userPhoto,omitempty"`
	Order       int                `bson:"order"`
	CreatedAt   time.Time          `bson:"timestamp"`
}

func (d taskDocument) toDomain() domain.Task {
	return domain.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		OwnerEmail:  d.OwnerEmail,
		OwnerName:   d.OwnerName,
		OwnerPhoto:  d.OwnerPhoto,
		Order:       d.Order,
		CreatedAt:   d.CreatedAt,
	}
}

// TasksByOwner returns the owner's tasks sorted ascending by order. The sort
// happens at the query level; an unknown owner yields an empty slice.
func (s *Store) TasksByOwner(ctx context.Context, email string) ([]domain.Task, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cur, err := s.tasks.Find(ctx, bson.M{"userEmail": email}, findOpts)
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toDomain())
	}
	return tasks, nil
}

// CreateTask inserts the task, assigning its id and creation timestamp, and
// returns the stored record.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	doc := taskDocument{
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		OwnerEmail:  task.OwnerEmail,
		OwnerName:   task.OwnerName,
		OwnerPhoto:  task.OwnerPhoto,
		Order:       task.Order,
		CreatedAt:   time.Now().UTC(),
	}
	res, err := s.tasks.InsertOne(ctx, doc)
	if err != nil {
		return domain.Task{}, err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return domain.Task{}, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

// UpdateTask applies the supplied fields and returns the owner's email so
// callers can invalidate per-owner caches. An update that modifies nothing
// reports not-found, matching the API contract.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", NotFoundError{ID: id}
	}

	var owner struct {
		Email string `bson:"userEmail"`
	}
	projection := options.FindOne().SetProjection(bson.M{"userEmail": 1})
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}, projection).Decode(&owner); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", NotFoundError{ID: id}
		}
		return "", err
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Order != nil {
		set["order"] = *patch.Order
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return "", err
	}
	if res.ModifiedCount == 0 {
		return "", NotFoundError{ID: id}
	}
	return owner.Email, nil
}

// UpdateOrders applies a batch of order reassignments in a single unordered
// bulk write. Ids that match no record are skipped silently; the return
// values are the number of modified records and the affected owner emails.
func (s *Store) UpdateOrders(ctx context.Context, updates []domain.OrderUpdate) (int64, []string, error) {
	models := make([]mongo.WriteModel, 0, len(updates))
	ids := make([]primitive.ObjectID, 0, len(updates))
	for _, u := range updates {
		oid, err := primitive.ObjectIDFromHex(u.TaskID)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{"order": u.Order}}))
	}
	if len(models) == 0 {
		return 0, nil, nil
	}

	res, err := s.tasks.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, nil, err
	}

	raw, err := s.tasks.Distinct(ctx, "userEmail", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return res.ModifiedCount, nil, err
	}
	owners := make([]string, 0, len(raw))
	for _, v := range raw {
		if email, ok := v.(string); ok {
			owners = append(owners, email)
		}
	}
	return res.ModifiedCount, owners, nil
}

// DeleteTask removes the task and returns its owner's email.
func (s *Store) DeleteTask(ctx context.Context, id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", NotFoundError{ID: id}
	}
	var doc taskDocument
	if err := s.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", NotFoundError{ID: id}
		}
		return "", err
	}
	return doc.OwnerEmail, nil
}

// RegisterUser upserts the profile keyed by the identity provider uid. The
// conditional insert makes concurrent first logins safe; it reports whether
// a new record was created.
func (s *Store) RegisterUser(ctx context.Context, user domain.User) (bool, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"uid":         user.ExternalID,
		"email":       user.Email,
		"displayName": user.DisplayName,
	}}
	res, err := s.users.UpdateOne(ctx, bson.M{"uid": user.ExternalID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}
