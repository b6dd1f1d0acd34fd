package pharmacies

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pharmalink-backend/pkg/security"
)

type stubAdmins struct {
	ids []string
}

func (s stubAdmins) ListIDs(context.Context) ([]string, error) {
	return s.ids, nil
}

func newTestService(t *testing.T, admins ...string) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Admins:     stubAdmins{ids: admins},
		DB:         client,
		IDs:        idgen.New(),
		Notify:     notifications.NewEnqueuer(outbox.NewService(outbox.NewRepository(conn), nil)),
		Password:   config.PasswordConfig{MinLength: 6},
	})
	require.NoError(t, err)
	return svc, client
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:     "Corner Pharmacy",
		Address:  "2 Main St",
		PhoneNo:  "555-0101",
		Username: "corner",
		Password: "secret1",
	}
}

func outboxDeliveries(t *testing.T, client *db.Client) []payloads.NotificationDelivery {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Order("rowid ASC").Find(&rows).Error)
	var out []payloads.NotificationDelivery
	for _, row := range rows {
		var env outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		var evt payloads.NotificationRequestedEvent
		require.NoError(t, json.Unmarshal(env.Data, &evt))
		out = append(out, evt.Deliveries...)
	}
	return out
}

func TestRegisterCreatesPendingPharmacyAndNotifiesAdmins(t *testing.T) {
	svc, client := newTestService(t, "admin-1", "admin-2")
	ctx := context.Background()

	res, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	require.Equal(t, "Pharmacy registered successfully. Awaiting admin approval.", res.Message)
	require.Regexp(t, `^PHA-\d{4}-\d{5}$`, res.PharmacyID)

	var stored models.Pharmacy
	require.NoError(t, client.DB().Where("id = ?", res.PharmacyID).Take(&stored).Error)
	assert.Equal(t, enums.AccountStatusPending, stored.Status)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	ok, err := security.VerifyPassword("secret1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	deliveries := outboxDeliveries(t, client)
	require.Len(t, deliveries, 1)
	assert.Equal(t, `New pharmacy "Corner Pharmacy" registered and is awaiting approval.`, deliveries[0].Message)
	assert.Equal(t, enums.RoleAdmin, deliveries[0].RecipientRole)
	assert.Equal(t, enums.NotificationTypeAddPharmacy, deliveries[0].Type)
	assert.Equal(t, []string{"admin-1", "admin-2"}, deliveries[0].RecipientIDs)
}

func TestRegisterRejectsDuplicateUsernameWithoutSideEffects(t *testing.T) {
	svc, client := newTestService(t, "admin-1")
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Name = "Another Pharmacy"
	_, err = svc.Register(ctx, dup)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "Username already registered", pkgerrors.As(err).Message())

	var count int64
	require.NoError(t, client.DB().Model(&models.Pharmacy{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, outboxDeliveries(t, client), 1)
}

func TestRegisterRequiresFields(t *testing.T) {
	svc, _ := newTestService(t)
	input := validRegistration()
	input.PhoneNo = "  "

	_, err := svc.Register(context.Background(), input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRegisterWithoutAdminsWritesNoOutboxRow(t *testing.T) {
	svc, client := newTestService(t)

	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Empty(t, outboxDeliveries(t, client))
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	other := validRegistration()
	other.Username = "harbour"
	_, err = svc.Register(ctx, other)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, first.PharmacyID, ProfileInput{Name: "Corner", Address: "3 Main St", PhoneNo: "555-0199", Username: "harbour"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	profile, err := svc.UpdateProfile(ctx, first.PharmacyID, ProfileInput{Name: "Corner", Address: "3 Main St", PhoneNo: "555-0199", Username: "corner"})
	require.NoError(t, err)
	assert.Equal(t, "Corner", profile.Name)
	assert.Equal(t, "3 Main St", profile.Address)

	_, err = svc.UpdateProfile(ctx, "PHA-2026-99999", ProfileInput{Name: "x", Address: "y", PhoneNo: "z", Username: "ghost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestChangePassword(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, res.PharmacyID, "wrong-one", "fresh-secret")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	err = svc.ChangePassword(ctx, res.PharmacyID, "secret1", "abc")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, res.PharmacyID, "secret1", "fresh-secret"))

	var stored models.Pharmacy
	require.NoError(t, client.DB().Where("id = ?", res.PharmacyID).Take(&stored).Error)
	ok, err := security.VerifyPassword("fresh-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
