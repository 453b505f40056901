package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/icza/userdir"
)

func newTestDirectory() *userdir.Directory {
	return userdir.NewDirectory(userdir.NewMemoryStore(), userdir.NewBcryptHasher(bcrypt.MinCost), userdir.Config{})
}

func exec(t *testing.T, d *userdir.Directory, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), d, args, &out), "args: %v", args)
	return out.String()
}

func TestExecute_Lifecycle(t *testing.T) {
	d := newTestDirectory()

	out := exec(t, d, "create", "as@as.hu", "secret", "Andras", "Belicza")
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "as@as.hu", created["email"])
	assert.Equal(t, "Andras", created["firstName"])
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "password")

	assert.JSONEq(t, "null", exec(t, d, "find", "bs@as.hu"))
	assert.Contains(t, exec(t, d, "find", "as@as.hu"), `"as@as.hu"`)

	assert.JSONEq(t, "true", exec(t, d, "verify", "as@as.hu", "secret"))
	assert.JSONEq(t, "false", exec(t, d, "verify", "as@as.hu", "wrong"))

	exec(t, d, "set-password", "as@as.hu", "secret2")
	assert.JSONEq(t, "true", exec(t, d, "verify", "as@as.hu", "secret2"))

	out = exec(t, d, "set-token", "as@as.hu", "rt1")
	assert.NotContains(t, out, "rt1")
	user, err := d.FindOne(context.Background(), "as@as.hu")
	require.NoError(t, err)
	require.True(t, user.HasRefreshToken())

	assert.JSONEq(t, "true", exec(t, d, "logout", "as@as.hu"))
	assert.JSONEq(t, "false", exec(t, d, "logout", "bs@as.hu"))
	assert.JSONEq(t, "null", exec(t, d, "set-token", "bs@as.hu", "rt1"))

	exec(t, d, "create", "bs@as.hu", "secret")
	exec(t, d, "create", "cs@as.hu", "secret")

	var page userdir.Page
	require.NoError(t, json.Unmarshal([]byte(exec(t, d, "list", "2", "2")), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "cs@as.hu", page.Data[0].Email)

	assert.JSONEq(t, "true", exec(t, d, "purge"))
	require.NoError(t, json.Unmarshal([]byte(exec(t, d, "list")), &page))
	assert.Equal(t, int64(0), page.Total)
	assert.Empty(t, page.Data)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no command", nil, errUsage},
		{"unknown command", []string{"drop"}, errUsage},
		{"missing args", []string{"create", "as@as.hu"}, errUsage},
		{"too many args", []string{"find", "a", "b"}, errUsage},
		{"invalid email", []string{"create", "invalid", "pw"}, userdir.ErrInvalidEmail},
		{"negative page", []string{"list", "-1"}, userdir.ErrInvalidPagination},
		{"non-numeric page", []string{"list", "x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := execute(context.Background(), newTestDirectory(), tt.args, &out)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got: %v", err)
			}
			assert.Empty(t, out.String())
		})
	}
}

func TestRun_MemoryBackend(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("USERDIR_STORE", "memory")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"list", "1", "5"}, &out))

	var page userdir.Page
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, int64(0), page.Total)
}

func TestRun_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("USERDIR_STORE", "nosuch")

	var out bytes.Buffer
	err := run(context.Background(), []string{"list"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
