package userdir

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	// DefaultDBName is the default for MongoConfig.DBName.
	DefaultDBName = "userdir"

	// DefaultUsersCollectionName is the default for MongoConfig.UsersCollectionName.
	DefaultUsersCollectionName = "users"
)

// MongoConfig holds MongoStore configuration.
// A zero value is a valid configuration, see constants for default values.
type MongoConfig struct {
	// DBName is the name of the database used by the MongoStore.
	DBName string

	// UsersCollectionName is the name of the database collection used by the
	// MongoStore to store users.
	UsersCollectionName string
}

// MongoStore is a Store using MongoDB.
// It's safe to use it concurrently from multiple goroutines.
type MongoStore struct {
	// mongoClient used for database operations.
	mongoClient *mongo.Client

	// cu is the users collection.
	cu *mongo.Collection

	// cfg to use
	cfg MongoConfig
}

// NewMongoStore creates a new MongoStore.
// This function panics if mongoClient is nil.
func NewMongoStore(mongoClient *mongo.Client, cfg MongoConfig) *MongoStore {
	if mongoClient == nil {
		panic("mongoClient must be provided")
	}

	if cfg.DBName == "" {
		cfg.DBName = DefaultDBName
	}
	if cfg.UsersCollectionName == "" {
		cfg.UsersCollectionName = DefaultUsersCollectionName
	}

	return &MongoStore{
		mongoClient: mongoClient,
		cu:          mongoClient.Database(cfg.DBName).Collection(cfg.UsersCollectionName),
		cfg:         cfg,
	}
}

// EnsureIndexes creates a unique index on the email field of the users
// collection. Insert reports violations with ErrDuplicateEmail.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.cu.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	return nil
}

// FindByEmail implements Store.FindByEmail.
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u *User
	if err := s.cu.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// Insert implements Store.Insert.
func (s *MongoStore) Insert(ctx context.Context, u *User) error {
	u.ID = bson.NewObjectID()
	if _, err := s.cu.InsertOne(ctx, u); err != nil {
		u.ID = bson.ObjectID{}
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email), err)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Save implements Store.Save.
func (s *MongoStore) Save(ctx context.Context, u *User) error {
	res, err := s.cu.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email), err)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count implements Store.Count.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.cu.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// List implements Store.List.
func (s *MongoStore) List(ctx context.Context, skip, limit int64) ([]*User, error) {
	users := []*User{}
	// A zero limit would mean no limit for MongoDB.
	if skip < 0 || limit <= 0 {
		return users, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := s.cu.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	if users == nil {
		users = []*User{}
	}
	return users, nil
}

// DeleteAll implements Store.DeleteAll.
func (s *MongoStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.cu.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return res.DeletedCount, nil
}

var _ Store = (*MongoStore)(nil)
