// Package storetest runs the common behavior checks every userdir.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/icza/userdir"
)

// Options tune Run to the implementation under test.
type Options struct {
	// UniqueEmail tells if the store rejects a second user with the same
	// email using userdir.ErrDuplicateEmail.
	UniqueEmail bool
}

// Run runs the checks. newStore must return an empty store, it is called
// once for each check.
func Run(t *testing.T, newStore func(t *testing.T) userdir.Store, opts Options) {
	t.Run("find-absent", func(t *testing.T) { testFindAbsent(t, newStore(t)) })
	t.Run("insert-find", func(t *testing.T) { testInsertFind(t, newStore(t)) })
	t.Run("save", func(t *testing.T) { testSave(t, newStore(t)) })
	t.Run("save-unknown", func(t *testing.T) { testSaveUnknown(t, newStore(t)) })
	t.Run("list", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("delete-all", func(t *testing.T) { testDeleteAll(t, newStore(t)) })
	if opts.UniqueEmail {
		t.Run("duplicate", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	}
}

func newUser(email string) *userdir.User {
	now := time.Now()
	return &userdir.User{
		Email:     email,
		Password:  "hash-" + email,
		FirstName: "First",
		LastName:  "Last",
		Created:   now,
		Updated:   now,
	}
}

func insert(ctx context.Context, t *testing.T, s userdir.Store, emails ...string) []*userdir.User {
	t.Helper()
	var users []*userdir.User
	for _, email := range emails {
		u := newUser(email)
		if err := s.Insert(ctx, u); err != nil {
			t.Fatalf("Failed to insert %s: %v", email, err)
		}
		users = append(users, u)
	}
	return users
}

func testFindAbsent(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	insert(ctx, t, s, "as@as.hu")

	u, err := s.FindByEmail(ctx, "unknown@as.hu")
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if u != nil {
		t.Errorf("Expected nil, got: %+v", u)
	}
}

func testInsertFind(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	inserted := insert(ctx, t, s, "as@as.hu")[0]
	if inserted.ID.IsZero() {
		t.Fatalf("Expected ID to be set")
	}

	u, err := s.FindByEmail(ctx, "as@as.hu")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if UsersDiffer(inserted, u) {
		t.Errorf("\nExpected: %+v,\ngot:      %+v", inserted, u)
	}
	if u.RefreshToken != nil {
		t.Errorf("Expected no refresh token, got: %v", *u.RefreshToken)
	}
}

func testSave(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	u := insert(ctx, t, s, "as@as.hu")[0]

	token := "rt1"
	u.RefreshToken = &token
	u.Password = "hash2"
	u.Updated = time.Now().Add(time.Minute)
	if err := s.Save(ctx, u); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := s.FindByEmail(ctx, "as@as.hu")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if UsersDiffer(u, loaded) {
		t.Errorf("\nExpected: %+v,\ngot:      %+v", u, loaded)
	}

	// Clearing the token must be persisted too:
	loaded.RefreshToken = nil
	if err := s.Save(ctx, loaded); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if loaded, err = s.FindByEmail(ctx, "as@as.hu"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if loaded.RefreshToken != nil {
		t.Errorf("Expected no refresh token, got: %v", *loaded.RefreshToken)
	}
}

func testSaveUnknown(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	u := newUser("as@as.hu")
	u.ID = bson.NewObjectID()
	if err := s.Save(ctx, u); !errors.Is(err, userdir.ErrNotFound) {
		t.Errorf("Expected: %v, got: %v", userdir.ErrNotFound, err)
	}

	// Deleted user:
	u = insert(ctx, t, s, "bs@as.hu")[0]
	if _, err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := s.Save(ctx, u); !errors.Is(err, userdir.ErrNotFound) {
		t.Errorf("Expected: %v, got: %v", userdir.ErrNotFound, err)
	}
}

func testList(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	insert(ctx, t, s, "a@as.hu", "b@as.hu", "c@as.hu")

	if n, err := s.Count(ctx); err != nil || n != 3 {
		t.Errorf("Expected 3 users, got: %d (err: %v)", n, err)
	}

	cases := []struct {
		title     string
		skip      int64
		limit     int64
		expEmails []string
	}{
		{title: "first", skip: 0, limit: 2, expEmails: []string{"a@as.hu", "b@as.hu"}},
		{title: "second", skip: 2, limit: 2, expEmails: []string{"c@as.hu"}},
		{title: "all", skip: 0, limit: 10, expEmails: []string{"a@as.hu", "b@as.hu", "c@as.hu"}},
		{title: "middle", skip: 1, limit: 1, expEmails: []string{"b@as.hu"}},
		{title: "past-end", skip: 5, limit: 2, expEmails: []string{}},
		{title: "zero-limit", skip: 0, limit: 0, expEmails: []string{}},
	}

	for _, c := range cases {
		users, err := s.List(ctx, c.skip, c.limit)
		if err != nil {
			t.Errorf("[%s] Expected no error, got: %v", c.title, err)
			continue
		}
		if users == nil {
			t.Errorf("[%s] Expected non-nil slice", c.title)
		}
		if len(users) != len(c.expEmails) {
			t.Errorf("[%s] Expected %d users, got: %d", c.title, len(c.expEmails), len(users))
			continue
		}
		for i, email := range c.expEmails {
			if users[i].Email != email {
				t.Errorf("[%s] Expected: %s, got: %s", c.title, email, users[i].Email)
			}
		}
	}
}

func testDeleteAll(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	insert(ctx, t, s, "a@as.hu", "b@as.hu", "c@as.hu")

	n, err := s.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 deleted, got: %d", n)
	}
	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Errorf("Expected 0 users, got: %d (err: %v)", n, err)
	}
	if u, err := s.FindByEmail(ctx, "a@as.hu"); err != nil || u != nil {
		t.Errorf("Expected no user, got: %+v (err: %v)", u, err)
	}

	// Deleting from an empty store is fine:
	if n, err := s.DeleteAll(ctx); err != nil || n != 0 {
		t.Errorf("Expected 0 deleted, got: %d (err: %v)", n, err)
	}
}

func testDuplicate(t *testing.T, s userdir.Store) {
	ctx := context.Background()

	insert(ctx, t, s, "as@as.hu")

	if err := s.Insert(ctx, newUser("as@as.hu")); !errors.Is(err, userdir.ErrDuplicateEmail) {
		t.Errorf("Expected: %v, got: %v", userdir.ErrDuplicateEmail, err)
	}
	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Errorf("Expected 1 user, got: %d (err: %v)", n, err)
	}
}

// UsersDiffer compares 2 users "deeply", comparing timestamps using
// TimesDiffer.
func UsersDiffer(u1, u2 *userdir.User) bool {
	if u1 == nil || u2 == nil {
		return u1 != u2
	}
	return u1.ID != u2.ID ||
		u1.Email != u2.Email ||
		u1.Password != u2.Password ||
		tokensDiffer(u1.RefreshToken, u2.RefreshToken) ||
		u1.FirstName != u2.FirstName ||
		u1.LastName != u2.LastName ||
		TimesDiffer(u1.Created, u2.Created) ||
		TimesDiffer(u1.Updated, u2.Updated)
}

func tokensDiffer(t1, t2 *string) bool {
	if t1 == nil || t2 == nil {
		return t1 != t2
	}
	return *t1 != *t2
}

// TimesDiffer compares if 2 time instances, concluding mismatch if the
// difference is bigger than 1 second.
func TimesDiffer(t1, t2 time.Time) bool {
	const maxDelta = time.Second
	delta := t1.Sub(t2)
	return delta > maxDelta || delta < -maxDelta
}
