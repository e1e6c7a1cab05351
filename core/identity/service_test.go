package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core/identity"
	dummydb "github.com/iannini25/auxiliosindico-web/storage/database/dummy"
)

func newClient(t *testing.T) (*identity.Client, identity.AccountRepository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewAccountRepository(db)
	return identity.NewClient(repo), repo
}

func TestClient_CreateAccount(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	tests := []struct {
		name    string
		email   string
		secret  string
		wantErr error
	}{
		{name: "no email", email: " ", secret: "604604", wantErr: identity.ErrInvalidEmail},
		{name: "weak secret", email: "ana@x.com", secret: "604", wantErr: identity.ErrWeakSecret},
		{name: "created", email: " Ana@X.com ", secret: "604604"},
		{name: "email exists", email: "ana@x.com", secret: "604604", wantErr: identity.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := c.CreateAccount(ctx, tt.email, tt.secret)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ana@x.com", acc.Email)

			sess, ok := c.Current()
			require.True(t, ok, "creating an account signs in")
			assert.Equal(t, acc.ID, sess.AccountID)
		})
	}
}

func TestClient_SignIn(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	acc, err := c.CreateAccount(ctx, "ana@x.com", "604604")
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))

	tests := []struct {
		name    string
		email   string
		secret  string
		wantErr error
	}{
		{name: "unknown email", email: "bia@x.com", secret: "604604", wantErr: identity.ErrInvalidCredential},
		{name: "wrong secret", email: "ana@x.com", secret: "604", wantErr: identity.ErrInvalidCredential},
		{name: "ok", email: "ANA@x.com", secret: "604604"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := c.SignIn(ctx, tt.email, tt.secret)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, acc.ID, sess.AccountID)
		})
	}
}

func TestClient_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	c, repo := newClient(t)
	acc, err := c.CreateAccount(ctx, "ana@x.com", "604604")
	require.NoError(t, err)

	other := identity.NewClient(repo)
	assert.Equal(t, identity.ErrNoSession, other.DeleteAccount(ctx, acc.ID), "only the owner may delete")

	require.NoError(t, c.DeleteAccount(ctx, acc.ID))
	_, ok := c.Current()
	assert.False(t, ok)

	_, err = c.SignIn(ctx, "ana@x.com", "604604")
	assert.Equal(t, identity.ErrInvalidCredential, err)
}

func TestClient_Observe(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	var mu sync.Mutex
	var seen []*identity.Session
	unsubscribe := c.Observe(func(s *identity.Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	acc, err := c.CreateAccount(ctx, "ana@x.com", "604604")
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))
	unsubscribe()
	_, err = c.SignIn(ctx, "ana@x.com", "604604")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3, "initial state, sign-in, sign-out")
	assert.Nil(t, seen[0])
	assert.Equal(t, acc.ID, seen[1].AccountID)
	assert.Nil(t, seen[2])
}

func TestClient_WaitForSession(t *testing.T) {
	c, _ := newClient(t)

	// already active
	acc, err := c.CreateAccount(context.Background(), "ana@x.com", "604604")
	require.NoError(t, err)
	sess, err := c.WaitForSession(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, sess.AccountID)

	// becomes active later
	require.NoError(t, c.SignOut(context.Background()))
	done := make(chan error, 1)
	go func() {
		_, err := c.WaitForSession(context.Background(), acc.ID)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	_, err = c.SignIn(context.Background(), "ana@x.com", "604604")
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForSession() did not return")
	}

	// never active
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.WaitForSession(ctx, "someone-else")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
}
