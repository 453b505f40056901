package userdir

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

func expectPanic(t *testing.T, name string) {
	if r := recover(); r == nil {
		t.Errorf("expected panic for %s", name)
	}
}

func TestNewDirectory(t *testing.T) {
	func() {
		defer expectPanic(t, "nil store")
		NewDirectory(nil, nil, Config{})
	}()

	store := NewMemoryStore()
	d := NewDirectory(store, nil, Config{})

	if d.store != store {
		t.Errorf("Expected %#v, got: %#v", store, d.store)
	}
	if h, ok := d.hasher.(*BcryptHasher); !ok || h.Cost() != DefaultBcryptCost {
		t.Errorf("Expected default bcrypt hasher, got: %#v", d.hasher)
	}
	if d.cfg.DefaultPageLimit != DefaultPageLimit || d.cfg.MaxPageLimit != DefaultMaxPageLimit {
		t.Errorf("Expected default limits, got: %#v", d.cfg)
	}
	if d.cfg.Logger == nil || d.log == nil {
		t.Errorf("Expected non-nil logger")
	}

	// Test custom config
	logger := zap.NewExample()
	hasher := NewBcryptHasher(4)
	cfg := Config{
		DefaultPageLimit: 20,
		MaxPageLimit:     50,
		Logger:           logger,
	}
	d = NewDirectory(store, hasher, cfg)
	if d.cfg != cfg {
		t.Errorf("Expected %#v, got: %#v", cfg, d.cfg)
	}
	if d.hasher != hasher {
		t.Errorf("Expected %#v, got: %#v", hasher, d.hasher)
	}

	// Default limit must not exceed the max limit
	d = NewDirectory(store, hasher, Config{MaxPageLimit: 5})
	if d.cfg.DefaultPageLimit != 5 {
		t.Errorf("Expected %d, got: %d", 5, d.cfg.DefaultPageLimit)
	}
}

func TestNewMongoStore(t *testing.T) {
	func() {
		defer expectPanic(t, "nil mongoClient")
		NewMongoStore(nil, MongoConfig{})
	}()

	// Connect does not reach out to the server.
	client, err := mongo.Connect(options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	s := NewMongoStore(client, MongoConfig{})
	defCfg := MongoConfig{
		DBName:              DefaultDBName,
		UsersCollectionName: DefaultUsersCollectionName,
	}
	if s.mongoClient != client {
		t.Errorf("Expected %#v, got: %#v", client, s.mongoClient)
	}
	if s.cfg != defCfg {
		t.Errorf("Expected %#v, got: %#v", defCfg, s.cfg)
	}
	if s.cu.Name() != DefaultUsersCollectionName || s.cu.Database().Name() != DefaultDBName {
		t.Errorf("Unexpected collection: %s.%s", s.cu.Database().Name(), s.cu.Name())
	}

	// Test custom config
	cfg := MongoConfig{
		DBName:              "dbname",
		UsersCollectionName: "ucname",
	}
	s = NewMongoStore(client, cfg)
	if s.cfg != cfg {
		t.Errorf("Expected %#v, got: %#v", cfg, s.cfg)
	}
	if s.cu.Name() != "ucname" || s.cu.Database().Name() != "dbname" {
		t.Errorf("Unexpected collection: %s.%s", s.cu.Database().Name(), s.cu.Name())
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, limit, exp int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{3, 2, 2},
		{3, 1, 3},
	}

	for _, c := range cases {
		if got := totalPages(c.total, c.limit); got != c.exp {
			t.Errorf("[%d/%d] Expected: %d, got: %d", c.total, c.limit, c.exp, got)
		}
	}
}
