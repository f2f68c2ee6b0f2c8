package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/council-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	collectionMessages  = "messages"
	collectionProjects  = "projects"
	collectionKnowledge = "knowledge_entries"
)

type MongoConfig struct {
	URI      string
	Database string
}

// MongoStorage implements Storage on MongoDB. Documents are keyed by the
// entity ID in string form.
type MongoStorage struct {
	client    *mongo.Client
	messages  *mongo.Collection
	projects  *mongo.Collection
	knowledge *mongo.Collection
	logger    *zap.Logger
}

func NewMongoStorage(ctx context.Context, config MongoConfig, logger *zap.Logger) (*MongoStorage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	s := &MongoStorage{
		client:    client,
		messages:  db.Collection(collectionMessages),
		projects:  db.Collection(collectionProjects),
		knowledge: db.Collection(collectionKnowledge),
		logger:    logger,
	}

	if err := s.createIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", zap.String("database", config.Database))
	return s, nil
}

func (s *MongoStorage) createIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.messages: {
			{Keys: bson.D{{Key: "processed", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "chat_id", Value: 1}}},
		},
		s.projects: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		s.knowledge: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "source_message_id", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll.Name(), err)
		}
	}
	return nil
}

// Message methods
func (s *MongoStorage) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	rec := toMessageRecord(msg)
	if err := upsert(ctx, s.messages, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return rec.toModel()
}

func (s *MongoStorage) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var rec messageRecord
	found, err := findByID(ctx, s.messages, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.toModel()
}

func (s *MongoStorage) GetUnprocessed(ctx context.Context, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	var recs []messageRecord
	if err := findAll(ctx, s.messages, bson.M{"processed": false}, opts, &recs); err != nil {
		return nil, fmt.Errorf("failed to list unprocessed messages: %w", err)
	}

	result := make([]*models.Message, 0, len(recs))
	for _, rec := range recs {
		msg, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}

func (s *MongoStorage) MarkAsProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Entity: "message", ID: id.String()}
	}
	return nil
}

// Project methods
func (s *MongoStorage) SaveProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	rec := toProjectRecord(project)
	if err := upsert(ctx, s.projects, rec.ID, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.DuplicateNameError{Name: project.Name}
		}
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	return rec.toModel()
}

func (s *MongoStorage) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var rec projectRecord
	found, err := findByID(ctx, s.projects, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.toModel()
}

func (s *MongoStorage) GetActiveProjects(ctx context.Context) ([]*models.Project, error) {
	return s.findProjects(ctx, bson.M{"status": string(models.StatusActive)})
}

func (s *MongoStorage) SearchProjects(ctx context.Context, query string) ([]*models.Project, error) {
	pattern := containsPattern(query)
	return s.findProjects(ctx, bson.M{"$or": []bson.M{
		{"name": pattern},
		{"description": pattern},
	}})
}

func (s *MongoStorage) findProjects(ctx context.Context, filter bson.M) ([]*models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var recs []projectRecord
	if err := findAll(ctx, s.projects, filter, opts, &recs); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	result := make([]*models.Project, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Knowledge methods
func (s *MongoStorage) SaveKnowledge(ctx context.Context, entry *models.KnowledgeEntry) (*models.KnowledgeEntry, error) {
	rec := toKnowledgeRecord(entry)
	if err := upsert(ctx, s.knowledge, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("failed to save knowledge entry: %w", err)
	}
	return rec.toModel()
}

func (s *MongoStorage) GetKnowledge(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	var rec knowledgeRecord
	found, err := findByID(ctx, s.knowledge, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.toModel()
}

func (s *MongoStorage) GetKnowledgeByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findKnowledge(ctx, bson.M{"project_id": projectID.String()}, opts)
}

func (s *MongoStorage) SearchKnowledge(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findKnowledge(ctx, bson.M{"content": containsPattern(query)}, opts)
}

func (s *MongoStorage) ListKnowledge(ctx context.Context, offset, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(max(offset, 0))).
		SetLimit(int64(limit))
	return s.findKnowledge(ctx, bson.M{}, opts)
}

func (s *MongoStorage) findKnowledge(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.KnowledgeEntry, error) {
	var recs []knowledgeRecord
	if err := findAll(ctx, s.knowledge, filter, opts, &recs); err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}

	result := make([]*models.KnowledgeEntry, 0, len(recs))
	for _, rec := range recs {
		entry, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func upsert(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func findByID(ctx context.Context, coll *mongo.Collection, id uuid.UUID, out any) (bool, error) {
	err := coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s %s: %w", coll.Name(), id, err)
	}
	return true, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, out any) error {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// containsPattern matches query as a literal, case-insensitive substring.
func containsPattern(query string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
}
