package user_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
	"github.com/trezcool/masomo-notify/core/user"
	dummydb "github.com/trezcool/masomo-notify/storage/database/dummy"
	testutil "github.com/trezcool/masomo-notify/tests"
)

func newService(t *testing.T) (*user.Service, user.Repository) {
	db, _ := dummydb.Open()
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo, testutil.NewTranslators(t)), repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	usr, err := svc.Create(ctx, user.NewUser{ID: 10, Name: " Alice ", Email: "Alice@Masomo.test ", Locale: "FR"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", usr.Name)
	assert.Equal(t, "alice@masomo.test", usr.Email)
	assert.Equal(t, "fr", usr.Locale)
	assert.True(t, usr.IsActive)

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []string
	}{
		{name: "empty", nu: user.NewUser{}, wantFields: []string{"id", "name", "email"}},
		{name: "invalid email", nu: user.NewUser{ID: 11, Name: "Bob", Email: "bob"}, wantFields: []string{"email"}},
		{name: "unsupported locale", nu: user.NewUser{ID: 11, Name: "Bob", Email: "bob@masomo.test", Locale: "sw"}, wantFields: []string{"locale"}},
		{name: "email taken", nu: user.NewUser{ID: 11, Name: "Bob", Email: "alice@masomo.test"}, wantFields: []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nu)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	_, err = svc.Create(ctx, user.NewUser{ID: 10, Name: "Eve", Email: "eve@masomo.test"})
	assert.ErrorIs(t, err, user.ErrUserExists)
}

func TestService_Recipient(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	testutil.CreateUser(t, repo, 10, "Alice", "alice@masomo.test", "fr", true)
	testutil.CreateUser(t, repo, 11, "Bob", "bob@masomo.test", "", false)

	rcpt, err := svc.Recipient(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, notification.Recipient{Address: mail.Address{Name: "Alice", Address: "alice@masomo.test"}, Locale: "fr"}, rcpt)

	for _, id := range []int64{11, 12} {
		_, err = svc.Recipient(ctx, id)
		assert.ErrorIs(t, err, notification.ErrRecipientUnavailable, "identity %d", id)
	}
}
