// Package identity issues and verifies account credentials, and tracks the session of a client.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
)

var (
	// errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrEmailExists       = errors.New("an account with this email already exists")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrWeakSecret        = errors.Errorf("secret must contain at least %d characters", MinSecretLen)
	ErrNoSession         = errors.New("no active session for this account")

	NowFunc = time.Now // mockable
)

type (
	AccountRepository interface {
		// CreateAccount returns ErrEmailExists when the email is taken.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		DeleteAccount(ctx context.Context, id string) error
	}

	// Service is the identity API available to one client.
	Service interface {
		// CreateAccount creates the account and signs the client in with it.
		CreateAccount(ctx context.Context, email, secret string) (Account, error)
		SignIn(ctx context.Context, email, secret string) (Session, error)
		SignOut(ctx context.Context) error
		// DeleteAccount deletes the signed-in account, or one this client just created.
		DeleteAccount(ctx context.Context, accountID string) error
		Current() (Session, bool)
		// Observe calls fn with the current session right away, then on every change (nil when signed out).
		Observe(fn func(*Session)) (unsubscribe func())
		// WaitForSession blocks until accountID is the active session.
		WaitForSession(ctx context.Context, accountID string) (Session, error)
	}

	// Factory gives a fresh client, with no session, backed by the same accounts.
	Factory func() Service

	Client struct {
		repo AccountRepository

		mu        sync.Mutex
		session   *Session
		created   map[string]struct{}
		observers map[int]func(*Session)
		nextObsID int
	}
)

var _ Service = (*Client)(nil)

func NewClient(repo AccountRepository) *Client {
	return &Client{
		repo:      repo,
		created:   make(map[string]struct{}),
		observers: make(map[int]func(*Session)),
	}
}

func NewFactory(repo AccountRepository) Factory {
	return func() Service { return NewClient(repo) }
}

func (c *Client) CreateAccount(ctx context.Context, email, secret string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return Account{}, ErrInvalidEmail
	}
	if len(secret) < MinSecretLen {
		return Account{}, ErrWeakSecret
	}

	acc := Account{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: NowFunc().UTC(),
	}
	if err := acc.SetSecret(secret); err != nil {
		return Account{}, errors.Wrap(err, "hashing secret")
	}
	acc, err := c.repo.CreateAccount(ctx, acc)
	if err != nil {
		return Account{}, err
	}

	c.mu.Lock()
	c.created[acc.ID] = struct{}{}
	c.mu.Unlock()

	c.setSession(&Session{AccountID: acc.ID, Email: acc.Email, SignedInAt: NowFunc().UTC()})
	return acc, nil
}

func (c *Client) SignIn(ctx context.Context, email, secret string) (Session, error) {
	email = core.CleanString(email, true /* lower */)
	acc, err := c.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Session{}, ErrInvalidCredential
		}
		return Session{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.CheckSecret(secret); err != nil {
		return Session{}, ErrInvalidCredential
	}

	sess := Session{AccountID: acc.ID, Email: acc.Email, SignedInAt: NowFunc().UTC()}
	c.setSession(&sess)
	return sess, nil
}

func (c *Client) SignOut(_ context.Context) error {
	c.setSession(nil)
	return nil
}

func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	c.mu.Lock()
	_, owned := c.created[accountID]
	active := c.session != nil && c.session.AccountID == accountID
	c.mu.Unlock()
	if !(owned || active) {
		return ErrNoSession
	}

	if err := c.repo.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.created, accountID)
	c.mu.Unlock()
	if active {
		c.setSession(nil)
	}
	return nil
}

func (c *Client) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) Observe(fn func(*Session)) func() {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	curr := copySession(c.session)
	c.mu.Unlock()

	fn(curr)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) WaitForSession(ctx context.Context, accountID string) (Session, error) {
	ready := make(chan Session, 1)
	unsubscribe := c.Observe(func(s *Session) {
		if s != nil && s.AccountID == accountID {
			select {
			case ready <- *s:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case s := <-ready:
		return s, nil
	case <-ctx.Done():
		return Session{}, errors.Wrap(ctx.Err(), "waiting for session")
	}
}

// setSession swaps the session and notifies observers outside of the lock.
func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	observers := make([]func(*Session), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(copySession(s))
	}
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
