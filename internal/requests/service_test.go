package requests

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pharmalink-backend/internal/catalog"
	"github.com/angelmondragon/pharmalink-backend/internal/inventory"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/registry"
)

const (
	acmeID    = "WHO-2026-00001"
	budgetID  = "WHO-2026-00002"
	cornerID  = "PHA-2026-00001"
	harbourID = "PHA-2026-00002"
)

type fixture struct {
	client    *db.Client
	svc       Service
	catalog   catalog.Service
	inventory *inventory.Repository
	logg      *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()

	for _, w := range []models.Wholesaler{
		{ID: acmeID, Name: "Acme Pharma", Address: "1 Depot Rd", Username: "acme"},
		{ID: budgetID, Name: "Budget Meds", Address: "9 Low St", Username: "budget"},
	} {
		w.PasswordHash = "x"
		w.Status = enums.AccountStatusApproved
		w.IsActive = true
		require.NoError(t, conn.Create(&w).Error)
	}
	for _, p := range []models.Pharmacy{
		{ID: cornerID, Name: "Corner Pharmacy", Address: "2 Main St", PhoneNo: "555-0101", Username: "corner"},
		{ID: harbourID, Name: "Harbour Chemist", Address: "7 Quay", PhoneNo: "555-0102", Username: "harbour"},
	} {
		p.PasswordHash = "x"
		p.Status = enums.AccountStatusApproved
		p.IsActive = true
		require.NoError(t, conn.Create(&p).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "requests-test", Output: io.Discard})
	enq := notifications.NewEnqueuer(outbox.NewService(outbox.NewRepository(conn), nil))
	ids := idgen.New()

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo, client, ids, enq)
	require.NoError(t, err)

	inv := inventory.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Catalog:    catalogRepo,
		Inventory:  inv,
		DB:         client,
		IDs:        ids,
		Notify:     enq,
		Logger:     logg,
	})
	require.NoError(t, err)

	// step the clock so list ordering is deterministic
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	return &fixture{client: client, svc: svc, catalog: catalogSvc, inventory: inv, logg: logg}
}

func (f *fixture) addProduct(t *testing.T, wholesalerID, name, price string) string {
	t.Helper()
	created, err := f.catalog.Add(context.Background(), wholesalerID, catalog.ProductInput{
		Name:        name,
		Description: "500mg capsules",
		Price:       decimal.RequireFromString(price),
		Quantity:    100,
		ExpireDate:  time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return created.ProductID
}

func (f *fixture) outboxCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func (f *fixture) stored(t *testing.T, id string) models.Request {
	t.Helper()
	var req models.Request
	require.NoError(t, f.client.DB().Where("id = ?", id).Take(&req).Error)
	return req
}

func lastDeliveries(t *testing.T, client *db.Client) []payloads.NotificationDelivery {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, client.DB().Order("rowid DESC").Take(&row).Error)
	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	var evt payloads.NotificationRequestedEvent
	require.NoError(t, json.Unmarshal(env.Data, &evt))
	return evt.Deliveries
}

func TestRequestLifecycleSnapshotsPriceAndAccruesInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	created, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
	require.Regexp(t, `^REQ-\d{4}-[0-9A-F]{4}$`, created.RequestID)
	require.Equal(t, "2.00", created.UnitPrice)
	require.Equal(t, "20.00", created.TotalAmount)

	deliveries := lastDeliveries(t, f.client)
	require.Len(t, deliveries, 1)
	assert.Equal(t, "New request for 10 units of Amoxicillin", deliveries[0].Message)
	assert.Equal(t, []string{acmeID}, deliveries[0].RecipientIDs)
	assert.Equal(t, enums.RolePharmacy, deliveries[0].TriggerRole)

	_, err = f.catalog.Update(ctx, acmeID, productID, catalog.ProductInput{
		Name:       "Amoxicillin",
		Price:      decimal.RequireFromString("3.00"),
		Quantity:   100,
		ExpireDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "20.00", f.stored(t, created.RequestID).TotalAmount.StringFixed(2))

	approved, err := f.svc.Approve(ctx, acmeID, created.RequestID)
	require.NoError(t, err)
	require.Equal(t, enums.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.OrderID)
	require.Regexp(t, `^ORD-\d{4}-[0-9A-F]{4}$`, *approved.OrderID)
	require.Equal(t, "20.00", approved.TotalAmount)

	qty, err := f.inventory.Quantity(ctx, cornerID, productID)
	require.NoError(t, err)
	require.Equal(t, 10, qty)

	deliveries = lastDeliveries(t, f.client)
	require.Len(t, deliveries, 2)
	assert.Equal(t, "Your request for 10 units of Amoxicillin (Total: 20.00) has been approved. Order ID: "+*approved.OrderID, deliveries[0].Message)
	assert.Equal(t, []string{cornerID}, deliveries[0].RecipientIDs)
	assert.Equal(t, "You approved a request for 10 units of Amoxicillin (Total: 20.00) for pharmacy "+cornerID+".", deliveries[1].Message)
	assert.Equal(t, enums.NotificationTypeRequestApproved, deliveries[1].Type)

	stored := f.stored(t, created.RequestID)
	require.NotNil(t, stored.NotificationMessage)
	assert.Equal(t, deliveries[0].Message, *stored.NotificationMessage)
	assert.NotNil(t, stored.ApprovedDatetime)

	before := f.outboxCount(t)
	_, err = f.svc.Approve(ctx, acmeID, created.RequestID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.svc.Reject(ctx, acmeID, created.RequestID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, before, f.outboxCount(t))

	qty, err = f.inventory.Quantity(ctx, cornerID, productID)
	require.NoError(t, err)
	require.Equal(t, 10, qty)
}

func TestCancelKeepsInventoryAndAllowsReapproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	created, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, acmeID, created.RequestID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	first, err := f.svc.Approve(ctx, acmeID, created.RequestID)
	require.NoError(t, err)

	before := f.outboxCount(t)
	cancelled, err := f.svc.Cancel(ctx, acmeID, created.RequestID)
	require.NoError(t, err)
	require.Equal(t, enums.RequestStatusPending, cancelled.Status)
	require.Nil(t, cancelled.OrderID)
	require.Equal(t, before, f.outboxCount(t))

	stored := f.stored(t, created.RequestID)
	require.Equal(t, enums.RequestStatusPending, stored.Status)
	require.Nil(t, stored.OrderID)
	require.Nil(t, stored.ApprovedDatetime)

	qty, err := f.inventory.Quantity(ctx, cornerID, productID)
	require.NoError(t, err)
	require.Equal(t, 10, qty)

	second, err := f.svc.Approve(ctx, acmeID, created.RequestID)
	require.NoError(t, err)
	require.NotEqual(t, *first.OrderID, *second.OrderID)

	qty, err = f.inventory.Quantity(ctx, cornerID, productID)
	require.NoError(t, err)
	require.Equal(t, 20, qty)
}

func TestForeignAndMissingRequestsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	created, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
	before := f.outboxCount(t)

	for name, call := range map[string]func() error{
		"foreign reject":  func() error { _, err := f.svc.Reject(ctx, budgetID, created.RequestID); return err },
		"foreign approve": func() error { _, err := f.svc.Approve(ctx, budgetID, created.RequestID); return err },
		"missing cancel":  func() error { _, err := f.svc.Cancel(ctx, acmeID, "REQ-2026-FFFF"); return err },
	} {
		err := call()
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "%s: %v", name, err)
		require.Equal(t, "Request not found or not authorized", pkgerrors.As(err).Message())
	}

	require.Equal(t, before, f.outboxCount(t))
	require.Equal(t, enums.RequestStatusPending, f.stored(t, created.RequestID).Status)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	_, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", WholesalerID: acmeID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: -2, WholesalerID: acmeID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: MaxQuantity + 1, WholesalerID: acmeID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 1, WholesalerID: budgetID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, "Product not found for this wholesaler", pkgerrors.As(err).Message())

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Request{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateRejectsTotalBeyondColumnRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, acmeID, "Insulin Pump", "9999999.00")

	_, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Insulin Pump", Quantity: MaxQuantity, WholesalerID: acmeID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "total amount exceeds the allowed maximum", pkgerrors.As(err).Message())

	_, err = f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Insulin Pump", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
}

func TestApproveSkipsAccrualWhenProductWasRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	created, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, acmeID, productID))

	approved, err := f.svc.Approve(ctx, acmeID, created.RequestID)
	require.NoError(t, err)
	require.Equal(t, enums.RequestStatusApproved, approved.Status)

	var holdings int64
	require.NoError(t, f.client.DB().Model(&models.PharmacyInventory{}).Count(&holdings).Error)
	require.Zero(t, holdings)
}

func TestApprovalDeliveriesReachInboxesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, acmeID, "Amoxicillin", "2.00")

	created, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, acmeID, created.RequestID)
	require.NoError(t, err)

	conn := f.client.DB()
	consumer, err := notifications.NewConsumer(notifications.NewFanout(notifications.NewRepository(conn), f.logg, nil), nil, f.logg)
	require.NoError(t, err)
	reg := registry.NewEventRegistry()

	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("rowid ASC").Find(&rows).Error)
	require.Len(t, rows, 3)
	// replaying every event must not duplicate inbox rows
	for pass := 0; pass < 2; pass++ {
		for _, row := range rows {
			resolved, err := reg.Resolve(row)
			require.NoError(t, err)
			require.NoError(t, consumer.Handle(ctx, resolved))
		}
	}

	var inbox []models.Notification
	require.NoError(t, conn.Where("recipient_id = ?", cornerID).Find(&inbox).Error)
	require.Len(t, inbox, 1)
	assert.Equal(t, enums.NotificationTypeRequestApproved, inbox[0].Type)
	assert.Equal(t, enums.RoleWholesaler, inbox[0].TriggerRole)

	var wholesalerInbox int64
	require.NoError(t, conn.Model(&models.Notification{}).Where("recipient_id = ?", acmeID).Count(&wholesalerInbox).Error)
	// product added, request received, approval confirmation
	require.Equal(t, int64(3), wholesalerInbox)
}

func TestPharmacyViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, acmeID, "Amoxicillin", "2.00")
	f.addProduct(t, acmeID, "Ibuprofen", "1.25")

	approvedReq, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Amoxicillin", Quantity: 10, WholesalerID: acmeID})
	require.NoError(t, err)
	rejectedReq, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Ibuprofen", Quantity: 4, WholesalerID: acmeID})
	require.NoError(t, err)
	pendingReq, err := f.svc.Create(ctx, cornerID, CreateInput{ProductName: "Ibuprofen", Quantity: 2, WholesalerID: acmeID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, harbourID, CreateInput{ProductName: "Amoxicillin", Quantity: 1, WholesalerID: acmeID})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, acmeID, approvedReq.RequestID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, acmeID, rejectedReq.RequestID)
	require.NoError(t, err)

	mine, err := f.svc.ListForPharmacy(ctx, cornerID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	require.Equal(t, pendingReq.RequestID, mine[0].ID)

	incoming, err := f.svc.ListForWholesaler(ctx, acmeID)
	require.NoError(t, err)
	require.Len(t, incoming, 4)
	require.Equal(t, "Harbour Chemist", incoming[0].PharmacyName)

	notes, err := f.svc.Notifications(ctx, cornerID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	titles := map[string]string{}
	for _, n := range notes {
		titles[n.NotificationID] = n.Title
		require.False(t, n.IsRead)
	}
	require.Equal(t, "Request Approved", titles[approvedReq.RequestID])
	require.Equal(t, "Request Rejected", titles[rejectedReq.RequestID])

	err = f.svc.MarkNotificationRead(ctx, harbourID, approvedReq.RequestID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.NoError(t, f.svc.MarkNotificationRead(ctx, cornerID, approvedReq.RequestID))
	require.True(t, f.stored(t, approvedReq.RequestID).NotificationSent)

	orders, err := f.svc.Orders(ctx, cornerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, *approved.OrderID, orders[0].OrderID)
	require.Equal(t, "Acme Pharma", orders[0].WholesalerName)
	require.Equal(t, "1 Depot Rd", orders[0].WholesalerAddress)
	require.Equal(t, "20.00", orders[0].TotalAmount)

	dash, err := f.svc.Dashboard(ctx, cornerID)
	require.NoError(t, err)
	require.Equal(t, int64(1), dash.TotalOrders)
	require.Equal(t, int64(1), dash.PendingRequests)
	require.Equal(t, "20.00", dash.TotalSpent)
	require.Len(t, dash.RecentOrders, 1)

	empty, err := f.svc.Dashboard(ctx, harbourID)
	require.NoError(t, err)
	require.Equal(t, "0.00", empty.TotalSpent)
	require.Empty(t, empty.RecentOrders)
}
