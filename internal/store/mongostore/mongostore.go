// Package mongostore implements store.Gateway on MongoDB, one collection per
// entity and no multi-document transactions.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	categoriesCollection = "categories"
	reportsCollection    = "reports"
	reactionsCollection  = "reactions"
	usersCollection      = "users"
)

type Store struct {
	client     *mongo.Client
	categories *mongo.Collection
	reports    *mongo.Collection
	reactions  *mongo.Collection
	users      *mongo.Collection
}

// Connect dials uri, selects database and makes sure the lookup indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:     client,
		categories: db.Collection(categoriesCollection),
		reports:    db.Collection(reportsCollection),
		reactions:  db.Collection(reactionsCollection),
		users:      db.Collection(usersCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.categories, mongo.IndexModel{Keys: bson.D{{Key: "reports", Value: 1}}}},
		{s.categories, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}}},
		{s.reports, mongo.IndexModel{Keys: bson.D{{Key: "users", Value: 1}}}},
		{s.reactions, mongo.IndexModel{Keys: bson.D{{Key: "report_id", Value: 1}}}},
		{s.users, mongo.IndexModel{
			Keys:    bson.D{{Key: "contact_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrConflict
	default:
		return store.Unavailable(op, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return store.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translate(op, err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M, sort string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: sort, Value: 1}}))
	if err != nil {
		return nil, translate(op, err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(op, err)
	}
	return out, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, op, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(op, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	if category.ReportIDs == nil {
		category.ReportIDs = []string{}
	}
	_, err := s.categories.InsertOne(ctx, category)
	return translate("create category", err)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return findOne[models.Category](ctx, s.categories, "get category", bson.M{"_id": id})
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, s.categories, "list categories", bson.M{}, "name")
}

func (s *Store) GetCategoryContainingReport(ctx context.Context, reportID string) (*models.Category, error) {
	return findOne[models.Category](ctx, s.categories, "find category by report", bson.M{"reports": reportID})
}

func (s *Store) SaveCategory(ctx context.Context, category *models.Category) error {
	res, err := s.categories.ReplaceOne(ctx, bson.M{"_id": category.ID}, category)
	if err != nil {
		return translate("save category", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateReport(ctx context.Context, report *models.Report) error {
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	if report.Reactions == nil {
		report.Reactions = []models.ReactionRef{}
	}
	_, err := s.reports.InsertOne(ctx, report)
	return translate("create report", err)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return findOne[models.Report](ctx, s.reports, "get report", bson.M{"_id": id})
}

// SaveReport replaces the document only while its version is unchanged.
func (s *Store) SaveReport(ctx context.Context, report *models.Report) error {
	next := report.Clone()
	next.Version = report.Version + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := s.reports.ReplaceOne(ctx, bson.M{"_id": report.ID, "version": report.Version}, next)
	if err != nil {
		return translate("save report", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.reports.CountDocuments(ctx, bson.M{"_id": report.ID})
		if err != nil {
			return translate("save report", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	report.Version = next.Version
	report.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	return deleteByID(ctx, s.reports, "delete report", id)
}

func (s *Store) ListReports(ctx context.Context) ([]models.Report, error) {
	return findAll[models.Report](ctx, s.reports, "list reports", bson.M{}, "published_at")
}

func (s *Store) ListReportsByUser(ctx context.Context, userID string) ([]models.Report, error) {
	return findAll[models.Report](ctx, s.reports, "list reports by user", bson.M{"users": userID}, "published_at")
}

func (s *Store) SaveReaction(ctx context.Context, reaction *models.Reaction) error {
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}
	_, err := s.reactions.ReplaceOne(ctx, bson.M{"_id": reaction.ID}, reaction, options.Replace().SetUpsert(true))
	return translate("save reaction", err)
}

func (s *Store) DeleteReaction(ctx context.Context, id string) error {
	return deleteByID(ctx, s.reactions, "delete reaction", id)
}

func (s *Store) ListReactionsByReport(ctx context.Context, reportID string) ([]models.Reaction, error) {
	return findAll[models.Reaction](ctx, s.reactions, "list reactions", bson.M{"report_id": reportID}, "reacted_at")
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, user)
	return translate("create user", err)
}

func (s *Store) GetUserByContactKey(ctx context.Context, key string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, "get user", bson.M{"contact_key": key})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, s.users, "list users", bson.M{}, "registered_at")
}

var _ store.Gateway = (*Store)(nil)
