package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinSecretLen is the shortest secret accepted when creating an account.
const MinSecretLen = 6

type Account struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SecretHash []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func (a *Account) SetSecret(secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.SecretHash = hash
	return nil
}

func (a *Account) CheckSecret(secret string) error {
	return bcrypt.CompareHashAndPassword(a.SecretHash, []byte(secret))
}

// Session is the signed-in state of a client.
type Session struct {
	AccountID  string    `json:"account_id"`
	Email      string    `json:"email"`
	SignedInAt time.Time `json:"signed_in_at"` // UTC
}
