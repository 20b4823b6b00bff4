package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/records"
	"github.com/spigell/job-matcher/internal/secrets"
)

const (
	usersCollection = "users"
	jobsCollection  = "jobs"

	defaultDatabase = "job_tracker"
	mongoURIEnv     = "JOB_MATCHER_MONGO_URI"

	connectTimeout = 15 * time.Second
)

// MongoStore reads the users and jobs collections. The profile is the user
// document selected by MongoConfig.UserID.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	jobs   *mongo.Collection
	userID any
	logger *zap.Logger
}

func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return nil, errors.New("mongo store requires user-id")
	}

	uri, err := secrets.Load(secrets.Source{
		Name:  "mongo uri",
		Value: cfg.URI,
		File:  cfg.URIFile,
		Env:   mongoURIEnv,
	})
	if err != nil {
		return nil, err
	}

	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		database = defaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 2*connectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetServerSelectionTimeout(connectTimeout).
		SetConnectTimeout(connectTimeout).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	logger.Debug("connected to mongo", zap.String("database", database))

	return &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		jobs:   db.Collection(jobsCollection),
		userID: documentID(userID),
		logger: logger.With(zap.String("store", DriverMongo)),
	}, nil
}

func (s *MongoStore) Profile(ctx context.Context) (*records.Profile, error) {
	var doc bson.M
	err := s.users.FindOne(ctx, bson.M{"_id": s.userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %v: %w", s.userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	return records.DecodeProfile(normalizeDocument(doc))
}

func (s *MongoStore) Jobs(ctx context.Context) (*records.Jobs, error) {
	cursor, err := s.jobs.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode job document: %w", err)
		}
		docs = append(docs, normalizeDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	jobs, err := records.DecodeJobs(docs)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("jobs loaded", zap.Int("jobs", jobs.Len()))
	return jobs, nil
}

func (s *MongoStore) SaveProfileFingerprint(ctx context.Context, fp []float64) error {
	update := bson.M{"$set": bson.M{profileFingerprintKey: fp}}
	if len(fp) == 0 {
		update = bson.M{"$unset": bson.M{profileFingerprintKey: ""}}
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": s.userID}, update)
	if err != nil {
		return fmt.Errorf("update user fingerprint: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %v: %w", s.userID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) SaveJobFingerprints(ctx context.Context, fps map[string][]float64) error {
	if len(fps) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(fps))
	for id, fp := range fps {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": documentID(id)}).
			SetUpdate(bson.M{"$set": bson.M{jobFingerprintKey: fp}}))
	}

	res, err := s.jobs.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("update job fingerprints: %w", err)
	}

	s.logger.Debug("job fingerprints saved",
		zap.Int("requested", len(fps)),
		zap.Int64("matched", res.MatchedCount),
		zap.Int64("modified", res.ModifiedCount),
	)
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// documentID turns hex strings into ObjectIDs; anything else is used as is.
func documentID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// normalizeDocument maps _id onto the id field records expect and unwraps
// BSON container types so the weakly typed decoder sees plain Go values.
func normalizeDocument(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			out[jobIDKey] = idString(v)
			continue
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalizeDocument(val)
	case bson.D:
		return normalizeDocument(val.Map())
	case bson.A:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, normalizeValue(item))
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	default:
		return v
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
