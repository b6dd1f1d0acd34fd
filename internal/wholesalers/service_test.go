package wholesalers

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
)

const actingAdmin = "5d9b7c1e-3f43-4a8e-9a55-0c9b1de0a001"

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		DB:         client,
		IDs:        idgen.New(),
		Notify:     notifications.NewEnqueuer(outbox.NewService(outbox.NewRepository(conn), nil)),
		Password:   config.PasswordConfig{MinLength: 6},
	})
	require.NoError(t, err)
	return svc, client
}

func acme() RegisterInput {
	return RegisterInput{Name: "Acme Pharma", Address: "1 Depot Rd", Username: "acme", Password: "secret1", Status: "approved"}
}

func outboxRows(t *testing.T, client *db.Client) []payloads.NotificationDelivery {
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

func TestAdminRegistrationNotifiesActingAdmin(t *testing.T) {
	svc, client := newTestService(t)

	res, err := svc.Register(context.Background(), acme(), actingAdmin)
	require.NoError(t, err)
	require.Regexp(t, `^WHO-\d{4}-\d{5}$`, res.WholesalerID)

	var stored models.Wholesaler
	require.NoError(t, client.DB().Where("id = ?", res.WholesalerID).Take(&stored).Error)
	assert.Equal(t, enums.AccountStatusApproved, stored.Status)
	assert.True(t, stored.IsActive)

	deliveries := outboxRows(t, client)
	require.Len(t, deliveries, 1)
	assert.Equal(t, `Wholesaler "Acme Pharma" has been registered successfully.`, deliveries[0].Message)
	assert.Equal(t, []string{actingAdmin}, deliveries[0].RecipientIDs)
	assert.Equal(t, enums.NotificationTypeRegisterWholesaler, deliveries[0].Type)
	assert.Equal(t, enums.RoleAdmin, deliveries[0].TriggerRole)
}

func TestPublicRegistrationSkipsNotification(t *testing.T) {
	svc, client := newTestService(t)

	_, err := svc.Register(context.Background(), acme(), "")
	require.NoError(t, err)
	assert.Empty(t, outboxRows(t, client))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	missing := acme()
	missing.Status = ""
	_, err := svc.Register(ctx, missing, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bogus := acme()
	bogus.Status = "maybe"
	_, err = svc.Register(ctx, bogus, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Register(ctx, acme(), "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, acme(), "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestProfileAndPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, acme(), "")
	require.NoError(t, err)

	profile, err := svc.UpdateProfile(ctx, res.WholesalerID, ProfileInput{Name: "Acme Wholesale", Address: "2 Depot Rd", Username: "acme-wholesale"})
	require.NoError(t, err)
	assert.Equal(t, "acme-wholesale", profile.Username)

	_, err = svc.UpdateProfile(ctx, res.WholesalerID, ProfileInput{Name: "", Address: "x", Username: "y"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Profile(ctx, "WHO-2026-99999")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.True(t, pkgerrors.IsCode(svc.ChangePassword(ctx, res.WholesalerID, "nope", "another1"), pkgerrors.CodeUnauthorized))
	require.NoError(t, svc.ChangePassword(ctx, res.WholesalerID, "secret1", "another1"))
}
