package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrUserExists  = errors.New("a user with this id already exists")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, user User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
	}

	Service struct {
		repo  Repository
		trans *core.Translators
	}
)

var _ notification.RecipientResolver = (*Service)(nil) // interface compliance check

func NewService(repo Repository, translators *core.Translators) *Service {
	return &Service{repo: repo, trans: translators}
}

func (svc *Service) checkUniqueness(email string) error {
	_, err := svc.repo.GetUserByEmail(context.Background(), email)
	switch {
	case err == nil:
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.trans.Validator(), svc); err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr, err := svc.repo.CreateUser(ctx, User{
		ID:        nu.ID,
		Name:      nu.Name,
		Email:     nu.Email,
		Locale:    nu.Locale,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// Recipient returns where to email the digest of identityID.
// Inactive users and users without an email are notification.ErrRecipientUnavailable.
func (svc *Service) Recipient(ctx context.Context, identityID int64) (notification.Recipient, error) {
	usr, err := svc.repo.GetUserByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notification.Recipient{}, errors.Wrapf(notification.ErrRecipientUnavailable, "user %d not found", identityID)
		}
		return notification.Recipient{}, err
	}
	if !usr.IsActive || usr.Email == "" {
		return notification.Recipient{}, errors.Wrapf(notification.ErrRecipientUnavailable, "user %d", identityID)
	}
	return notification.Recipient{
		Address: mail.Address{Name: usr.Name, Address: usr.Email},
		Locale:  usr.Locale,
	}, nil
}
