// Package residency provisions resident accounts: apartment validation, derived secrets,
// capacity-limited signup with compensation, and login across secret policies.
package residency

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
	"github.com/iannini25/auxiliosindico-web/core/identity"
)

const (
	opSignUp  = "signup"
	opLogin   = "login"
	opProfile = "profile"
	opSetRole = "setrole"
)

type Service struct {
	store    docstore.Store
	mailSvc  core.EmailService
	logger   core.Logger
	validate *validator.Validate

	sessionWaitTimeout  time.Duration
	compensationTimeout time.Duration
}

func NewService(
	store docstore.Store,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		store:               store,
		mailSvc:             mailSvc,
		logger:              logger,
		validate:            validate,
		sessionWaitTimeout:  conf.Residency.SessionWaitTimeout,
		compensationTimeout: conf.Residency.CompensationTimeout,
	}
}

// SignUp creates the account of a new resident, takes a seat in their apartment and writes their profile.
// Once the account exists, any failure deletes it again and signs auth out; only the triggering error
// is returned.
func (svc *Service) SignUp(ctx context.Context, auth identity.Service, nr NewResident) (Profile, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Profile{}, &Error{Kind: KindValidation, Op: opSignUp, Err: err}
	}
	apt, _ := ParseApartment(string(nr.Apt))

	acc, err := auth.CreateAccount(ctx, nr.Email, DeriveSecret(strconv.Itoa(apt)))
	if err != nil {
		return Profile{}, &Error{Kind: KindIdentity, Op: opSignUp, Apt: apt, Err: err}
	}

	prof, err := svc.provision(ctx, auth, acc, nr, apt)
	if err != nil {
		svc.compensate(ctx, auth, acc)
		return Profile{}, err
	}

	svc.sendWelcome(prof)
	return prof, nil
}

func (svc *Service) provision(ctx context.Context, auth identity.Service, acc identity.Account, nr NewResident, apt int) (Profile, error) {
	// writes are authorized by the active session: it must be visible first
	waitCtx := ctx
	if svc.sessionWaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, svc.sessionWaitTimeout)
		defer cancel()
	}
	if _, err := auth.WaitForSession(waitCtx, acc.ID); err != nil {
		return Profile{}, &Error{Kind: KindIdentity, Op: opSignUp, Apt: apt, Err: err}
	}

	if err := svc.claimSeat(ctx, apt, acc.ID); err != nil {
		if errors.Is(err, ErrApartmentFull) {
			return Profile{}, &Error{Kind: KindCapacity, Op: opSignUp, Apt: apt, Err: ErrApartmentFull}
		}
		return Profile{}, &Error{Kind: KindStore, Op: opSignUp, Apt: apt, Err: errors.Wrap(err, "claiming apartment seat")}
	}

	prof := Profile{
		ID:    acc.ID,
		Name:  nr.Name,
		Phone: nr.Phone,
		Apt:   apt,
		Email: acc.Email,
		Role:  RoleResident,
	}
	err := svc.store.Set(ctx, UsersCollection, acc.ID, docstore.Data{
		"name":      prof.Name,
		"phone":     prof.Phone,
		"apt":       prof.Apt,
		"email":     prof.Email,
		"role":      prof.Role,
		"createdAt": docstore.ServerTimestamp,
	}, docstore.Merge())
	if err != nil {
		return Profile{}, &Error{Kind: KindStore, Op: opSignUp, Apt: apt, Err: errors.Wrap(err, "writing profile")}
	}

	if doc, err := svc.store.Get(ctx, UsersCollection, acc.ID); err == nil {
		prof.CreatedAt = docstore.Time(doc.Data["createdAt"])
	}
	return prof, nil
}

// claimSeat atomically adds accountID to the residents of apt, unless the apartment is full.
func (svc *Service) claimSeat(ctx context.Context, apt int, accountID string) error {
	id := strconv.Itoa(apt)
	return svc.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(ctx, ApartmentsCollection, id)
		exists := err == nil
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		a := apartmentFromDoc(apt, doc.Data)
		if a.HasResident(accountID) {
			return nil
		}
		if a.Count >= Capacity {
			return ErrApartmentFull
		}

		createdAt := docstore.ServerTimestamp
		if exists && doc.Data["createdAt"] != nil {
			createdAt = doc.Data["createdAt"]
		}
		return tx.Set(ctx, ApartmentsCollection, id, docstore.Data{
			"count":     a.Count + 1,
			"residents": append(a.Residents, accountID),
			"createdAt": createdAt,
			"updatedAt": docstore.ServerTimestamp,
		}, docstore.Merge())
	})
}

// compensate removes the account of a failed signup. It runs even if ctx was cancelled;
// its own failures are logged and dropped.
func (svc *Service) compensate(ctx context.Context, auth identity.Service, acc identity.Account) {
	cctx := context.WithoutCancel(ctx)
	if svc.compensationTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, svc.compensationTimeout)
		defer cancel()
	}

	if err := auth.DeleteAccount(cctx, acc.ID); err != nil {
		svc.logger.Error(fmt.Sprintf("signup rollback: deleting account %s: %v", acc.ID, err), err)
	}
	if err := auth.SignOut(cctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("signup rollback: signing out: %v", err), err)
	}
}

func (svc *Service) sendWelcome(prof Profile) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject:      "Bem-vindo(a)",
		TemplateName: "welcome",
		TemplateData: prof,
	})
}

// Login signs a resident in with their email and apartment number. Accounts created when the secret was
// the bare apartment digits are tried once more with that secret, on invalid-credential only.
func (svc *Service) Login(ctx context.Context, auth identity.Service, lr LoginRequest) (identity.Session, error) {
	if err := lr.Validate(svc.validate); err != nil {
		return identity.Session{}, &Error{Kind: KindValidation, Op: opLogin, Err: err}
	}

	current := DeriveSecret(string(lr.AptPassword))
	sess, err := auth.SignIn(ctx, lr.Email, current)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, identity.ErrInvalidCredential) {
		if legacy := LegacySecret(string(lr.AptPassword)); legacy != current {
			sess, err = auth.SignIn(ctx, lr.Email, legacy)
			if err == nil {
				svc.logger.Info(fmt.Sprintf("login: %s signed in with a legacy secret", sess.AccountID))
				return sess, nil
			}
		}
	}
	return identity.Session{}, &Error{Kind: KindIdentity, Op: opLogin, Err: err}
}

func (svc *Service) GetProfile(ctx context.Context, accountID string) (Profile, error) {
	doc, err := svc.store.Get(ctx, UsersCollection, accountID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, &Error{Kind: KindStore, Op: opProfile, Err: err}
	}
	return profileFromDoc(doc), nil
}

func (svc *Service) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	docs, err := svc.store.Query(ctx, UsersCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("email", docstore.OpEqual, core.CleanString(email, true /* lower */))},
		Limit: 1,
	})
	if err != nil {
		return Profile{}, &Error{Kind: KindStore, Op: opProfile, Err: err}
	}
	if len(docs) == 0 {
		return Profile{}, ErrProfileNotFound
	}
	return profileFromDoc(docs[0]), nil
}

// SetRole assigns a role out-of-band, e.g. promotes a resident to moderator.
func (svc *Service) SetRole(ctx context.Context, email, role string) (Profile, error) {
	if !IsValidRole(role) {
		return Profile{}, ErrInvalidRole
	}
	prof, err := svc.GetProfileByEmail(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	if err = svc.store.Update(ctx, UsersCollection, prof.ID, docstore.Data{"role": role}); err != nil {
		return Profile{}, &Error{Kind: KindStore, Op: opSetRole, Err: err}
	}
	prof.Role = role
	return prof, nil
}

// GetApartment returns the occupancy of apartment n; an apartment nobody signed up for is empty.
func (svc *Service) GetApartment(ctx context.Context, n int) (Apartment, error) {
	if !IsValidApartment(n) {
		return Apartment{}, &Error{Kind: KindValidation, Op: opProfile, Apt: n, Err: ErrInvalidApartment}
	}
	doc, err := svc.store.Get(ctx, ApartmentsCollection, strconv.Itoa(n))
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return Apartment{}, &Error{Kind: KindStore, Op: opProfile, Apt: n, Err: err}
	}
	a := apartmentFromDoc(n, doc.Data)
	if a.Residents == nil {
		a.Residents = []string{}
	}
	return a, nil
}
