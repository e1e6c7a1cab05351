package residency

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/identity"
)

// Collections
const (
	ApartmentsCollection = "apartments"
	UsersCollection      = "users"
)

// Roles
const (
	RoleResident  = "resident"
	RoleModerator = "moderator"
)

const (
	minSecretLen = identity.MinSecretLen
	maxSecretLen = 72 // bcrypt ignores anything longer
)

var Roles = []string{RoleResident, RoleModerator}

// AptNumber is an apartment number as typed in a form; JSON numbers and strings are both accepted.
type AptNumber string

func (a *AptNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AptNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = AptNumber(n.String())
	return nil
}

// NewResident contains information needed to sign up a resident.
type NewResident struct {
	Name  string    `json:"name" validate:"required,notblank"`
	Phone string    `json:"phone"`
	Apt   AptNumber `json:"apt" validate:"required,apartment"`
	Email string    `json:"email" validate:"required,email"`
}

func (nr *NewResident) Clean() {
	nr.Name = core.CleanString(nr.Name)
	nr.Phone = core.CleanString(nr.Phone)
	nr.Apt = AptNumber(core.CleanString(string(nr.Apt)))
	nr.Email = core.CleanString(nr.Email, true /* lower */)
}

func (nr *NewResident) Validate(validate *validator.Validate) error {
	nr.Clean()
	return validate.Struct(nr)
}

type LoginRequest struct {
	Email       string    `json:"email" validate:"required"`
	AptPassword AptNumber `json:"apt_password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

// Profile is the resident record kept at users/{accountID}.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Apt       int       `json:"apt"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (p Profile) IsModerator() bool { return p.Role == RoleModerator }

// RequireModerator returns ErrForbidden unless p is a moderator.
func RequireModerator(p Profile) error {
	if !p.IsModerator() {
		return ErrForbidden
	}
	return nil
}

func profileFromDoc(doc docstore.Document) Profile {
	role := docstore.String(doc.Data["role"])
	if role == "" {
		role = RoleResident
	}
	return Profile{
		ID:        doc.ID,
		Name:      docstore.String(doc.Data["name"]),
		Phone:     docstore.String(doc.Data["phone"]),
		Apt:       docstore.Int(doc.Data["apt"]),
		Email:     docstore.String(doc.Data["email"]),
		Role:      role,
		CreatedAt: docstore.Time(doc.Data["createdAt"]),
	}
}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
