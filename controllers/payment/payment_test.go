package paymentControllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/payments"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Address{},
		&models.Menu{}, &models.MenuItem{},
		&models.Order{}, &models.Payment{}, &models.Delivery{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedPendingOrder creates a menu with its capacity already decremented by
// quantity, plus the matching pending order carrying the intent reference.
func seedPendingOrder(t *testing.T, db *gorm.DB, intentID string, quantity, menuCapacityLeft int) (models.Order, models.Menu) {
	t.Helper()

	menu := models.Menu{
		ID:            uuid.NewString(),
		MomID:         uuid.NewString(),
		Name:          "Dal Tadka Thali",
		Active:        true,
		TotalCost:     120,
		AvailableFrom: time.Now().Add(-time.Hour),
		MaxOrders:     menuCapacityLeft,
	}
	if err := db.Create(&menu).Error; err != nil {
		t.Fatalf("failed to seed menu: %v", err)
	}

	order := models.Order{
		ID:              uuid.NewString(),
		CustomerID:      uuid.NewString(),
		MenuID:          menu.ID,
		MomID:           menu.MomID,
		Quantity:        quantity,
		TotalAmount:     menu.TotalCost * float64(quantity),
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentIntentID: intentID,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order, menu
}

type fakeGateway struct {
	intent *payments.Intent
	err    error
}

func (g *fakeGateway) CreateIntent(amount int64, md payments.Metadata) (*payments.Intent, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) RetrieveIntent(id string) (*payments.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.intent, nil
}

type fakeVerifier struct {
	event *payments.Event
	err   error
}

func (v *fakeVerifier) VerifyWebhook(payload []byte, sigHeader string) (*payments.Event, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

func TestReconcileSuccessIdempotent(t *testing.T) {
	db := setupTestDB(t)
	order, _ := seedPendingOrder(t, db, "pi_abc", 2, 3)

	intent := &payments.Intent{
		ID:     "pi_abc",
		Status: payments.StatusSucceeded,
		Amount: 27000,
		Method: "card",
		UserID: order.CustomerID,
	}

	if err := ReconcileSuccess(db, intent); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	if err := ReconcileSuccess(db, intent); err != nil {
		t.Fatalf("second reconcile must be a no-op, got: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("order not found: %v", err)
	}
	if reloaded.Status != models.OrderStatusConfirmed || reloaded.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("expected confirmed/paid, got %s/%s", reloaded.Status, reloaded.PaymentStatus)
	}

	var paymentCount int64
	db.Model(&models.Payment{}).Where("provider_payment_id = ?", "pi_abc").Count(&paymentCount)
	if paymentCount != 1 {
		t.Errorf("expected exactly 1 payment audit row, found %d", paymentCount)
	}

	var payment models.Payment
	db.First(&payment, "provider_payment_id = ?", "pi_abc")
	if payment.Amount != 270 {
		t.Errorf("amount should be in rupees: got %v, want 270", payment.Amount)
	}
	if payment.Status != models.PaymentRecordSuccess {
		t.Errorf("expected success audit status, got %s", payment.Status)
	}
}

func TestReconcileSuccessUnknownIntent(t *testing.T) {
	db := setupTestDB(t)

	err := ReconcileSuccess(db, &payments.Intent{ID: "pi_ghost", Status: payments.StatusSucceeded})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown intent, got %v", err)
	}
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Errorf("no audit row may exist, found %d", count)
	}
}

func TestReconcileFailureRestoresCapacity(t *testing.T) {
	db := setupTestDB(t)
	order, menu := seedPendingOrder(t, db, "pi_fail", 2, 3)

	if err := ReconcileFailure(db, "pi_fail"); err != nil {
		t.Fatalf("ReconcileFailure failed: %v", err)
	}

	var reloadedMenu models.Menu
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 5 {
		t.Errorf("capacity should be restored to 5, got %d", reloadedMenu.MaxOrders)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusCancelled || reloaded.PaymentStatus != models.PaymentStatusFailed {
		t.Errorf("expected cancelled/failed, got %s/%s", reloaded.Status, reloaded.PaymentStatus)
	}

	// Second call must not restore capacity again.
	if err := ReconcileFailure(db, "pi_fail"); err != nil {
		t.Fatalf("repeat ReconcileFailure failed: %v", err)
	}
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 5 {
		t.Errorf("double restore detected: got %d, want 5", reloadedMenu.MaxOrders)
	}
}

func TestReconcileFailureUnknownIntent(t *testing.T) {
	db := setupTestDB(t)
	if err := ReconcileFailure(db, "pi_nothing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileFailureSkipsDeliveredOrder(t *testing.T) {
	db := setupTestDB(t)
	order, menu := seedPendingOrder(t, db, "pi_mixed", 1, 4)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusDelivered,
			"payment_status": models.PaymentStatusPaid,
		}).Error; err != nil {
		t.Fatalf("failed to mark order delivered: %v", err)
	}

	if err := ReconcileFailure(db, "pi_mixed"); err != nil {
		t.Fatalf("ReconcileFailure failed: %v", err)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusDelivered {
		t.Errorf("delivered order mutated by compensation: %s", reloaded.Status)
	}
	var reloadedMenu models.Menu
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 4 {
		t.Errorf("capacity restored for a delivered order: %d", reloadedMenu.MaxOrders)
	}
}

func TestExpireStaleOrders(t *testing.T) {
	db := setupTestDB(t)
	stale, staleMenu := seedPendingOrder(t, db, "", 2, 3)
	fresh, freshMenu := seedPendingOrder(t, db, "pi_fresh", 1, 4)

	// Age the stale order past the cutoff.
	old := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to age order: %v", err)
	}

	expired, err := ExpireStaleOrders(db, time.Hour)
	if err != nil {
		t.Fatalf("ExpireStaleOrders failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired order, got %d", expired)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", stale.ID)
	if reloaded.Status != models.OrderStatusCancelled {
		t.Errorf("stale order should be cancelled, got %s", reloaded.Status)
	}
	var menu models.Menu
	db.First(&menu, "id = ?", staleMenu.ID)
	if menu.MaxOrders != 5 {
		t.Errorf("stale order capacity not restored: %d", menu.MaxOrders)
	}

	var reloadedFresh models.Order
	db.First(&reloadedFresh, "id = ?", fresh.ID)
	if reloadedFresh.Status != models.OrderStatusPending {
		t.Errorf("fresh order must be untouched, got %s", reloadedFresh.Status)
	}
	var reloadedFreshMenu models.Menu
	db.First(&reloadedFreshMenu, "id = ?", freshMenu.ID)
	if reloadedFreshMenu.MaxOrders != 4 {
		t.Errorf("fresh order capacity changed: %d", reloadedFreshMenu.MaxOrders)
	}
}

func TestReconcileSuccessAfterExpiryKeepsCancelled(t *testing.T) {
	db := setupTestDB(t)
	order, menu := seedPendingOrder(t, db, "pi_late", 2, 3)

	old := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to age order: %v", err)
	}
	if expired, err := ExpireStaleOrders(db, time.Hour); err != nil || expired != 1 {
		t.Fatalf("ExpireStaleOrders: expired=%d err=%v", expired, err)
	}

	// A late succeeded event must not resurrect the cancelled order; its
	// capacity is already back on the menu.
	intent := &payments.Intent{
		ID:     "pi_late",
		Status: payments.StatusSucceeded,
		Amount: 24000,
		UserID: order.CustomerID,
	}
	if err := ReconcileSuccess(db, intent); err != nil {
		t.Fatalf("late reconcile should ack, got: %v", err)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusCancelled || reloaded.PaymentStatus != models.PaymentStatusFailed {
		t.Errorf("expired order resurrected: %s/%s", reloaded.Status, reloaded.PaymentStatus)
	}
	var reloadedMenu models.Menu
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 5 {
		t.Errorf("capacity must stay restored, got %d", reloadedMenu.MaxOrders)
	}

	// The charge still gets exactly one audit row, even on redelivery.
	if err := ReconcileSuccess(db, intent); err != nil {
		t.Fatalf("redelivery should be a no-op, got: %v", err)
	}
	var paymentCount int64
	db.Model(&models.Payment{}).Where("provider_payment_id = ?", "pi_late").Count(&paymentCount)
	if paymentCount != 1 {
		t.Errorf("expected 1 audit row for the orphaned charge, found %d", paymentCount)
	}
}

func TestExpireStaleOrdersCountOnRollback(t *testing.T) {
	db := setupTestDB(t)
	stale, _ := seedPendingOrder(t, db, "", 1, 4)

	old := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to age order: %v", err)
	}

	// Force the capacity restore to fail so the transaction rolls back.
	if err := db.Migrator().DropTable(&models.Menu{}); err != nil {
		t.Fatalf("failed to drop menus table: %v", err)
	}

	expired, err := ExpireStaleOrders(db, time.Hour)
	if err == nil {
		t.Fatal("expected an error from the failed capacity restore")
	}
	if expired != 0 {
		t.Errorf("rolled-back order must not be counted, got %d", expired)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", stale.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Errorf("order should be untouched after rollback, got %s", reloaded.Status)
	}
}

func TestVerifyPaymentNotYetSucceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, _ := seedPendingOrder(t, db, "pi_wait", 1, 4)

	gw := &fakeGateway{intent: &payments.Intent{
		ID:     "pi_wait",
		Status: "requires_payment_method",
	}}

	r := gin.New()
	r.POST("/payments/verify-payment", VerifyPaymentHandler(db, gw))

	req := httptest.NewRequest(http.MethodPost, "/payments/verify-payment",
		strings.NewReader(`{"payment_intent_id":"pi_wait"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"success":false`)) {
		t.Errorf("expected success:false, got %s", w.Body.String())
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Errorf("unverified payment must not mutate the order, got %s", reloaded.Status)
	}
}

func TestVerifyPaymentSucceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, _ := seedPendingOrder(t, db, "pi_done", 1, 4)

	gw := &fakeGateway{intent: &payments.Intent{
		ID:     "pi_done",
		Status: payments.StatusSucceeded,
		Amount: 12000,
		Method: "upi",
		UserID: order.CustomerID,
	}}

	r := gin.New()
	r.POST("/payments/verify-payment", VerifyPaymentHandler(db, gw))

	req := httptest.NewRequest(http.MethodPost, "/payments/verify-payment",
		strings.NewReader(`{"payment_intent_id":"pi_done"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusConfirmed || reloaded.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("expected confirmed/paid, got %s/%s", reloaded.Status, reloaded.PaymentStatus)
	}
}

func TestVerifyPaymentGatewayError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	gw := &fakeGateway{err: errors.New("stripe unavailable")}
	r := gin.New()
	r.POST("/payments/verify-payment", VerifyPaymentHandler(db, gw))

	req := httptest.NewRequest(http.MethodPost, "/payments/verify-payment",
		strings.NewReader(`{"payment_intent_id":"pi_x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestFailPaymentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, menu := seedPendingOrder(t, db, "pi_cancel", 2, 3)

	r := gin.New()
	r.POST("/payments/fail-payment", FailPaymentHandler(db))

	req := httptest.NewRequest(http.MethodPost, "/payments/fail-payment",
		strings.NewReader(`{"payment_intent_id":"pi_cancel"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", reloaded.Status)
	}
	var reloadedMenu models.Menu
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 5 {
		t.Errorf("capacity not restored, got %d", reloadedMenu.MaxOrders)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, _ := seedPendingOrder(t, db, "pi_sig", 1, 4)

	verifier := &fakeVerifier{err: errors.New("signature mismatch")}
	r := gin.New()
	r.POST("/payments/webhook", StripeWebhookHandler(db, verifier))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=forged")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad signature, got %d", w.Code)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Errorf("forged webhook must not mutate state, got %s", reloaded.Status)
	}
}

func TestWebhookSucceededRedelivery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, _ := seedPendingOrder(t, db, "pi_hook", 1, 4)

	verifier := &fakeVerifier{event: &payments.Event{
		Type: payments.EventPaymentSucceeded,
		Intent: payments.Intent{
			ID:     "pi_hook",
			Status: payments.StatusSucceeded,
			Amount: 12000,
			UserID: order.CustomerID,
		},
	}}
	r := gin.New()
	r.POST("/payments/webhook", StripeWebhookHandler(db, verifier))

	deliver := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
			strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=valid")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := deliver(); w.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", w.Code)
	}
	if w := deliver(); w.Code != http.StatusOK {
		t.Fatalf("redelivery: expected 200, got %d", w.Code)
	}

	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusConfirmed {
		t.Errorf("expected confirmed, got %s", reloaded.Status)
	}
	var paymentCount int64
	db.Model(&models.Payment{}).Where("provider_payment_id = ?", "pi_hook").Count(&paymentCount)
	if paymentCount != 1 {
		t.Errorf("redelivery created %d audit rows, want 1", paymentCount)
	}
}

func TestWebhookFailedEventIsLogOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	order, menu := seedPendingOrder(t, db, "pi_nope", 2, 3)

	verifier := &fakeVerifier{event: &payments.Event{
		Type:   payments.EventPaymentFailed,
		Intent: payments.Intent{ID: "pi_nope"},
	}}
	r := gin.New()
	r.POST("/payments/webhook", StripeWebhookHandler(db, verifier))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=valid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", w.Code)
	}

	// Compensation is the explicit fail-payment call's job, not the webhook's.
	var reloaded models.Order
	db.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != models.OrderStatusPending {
		t.Errorf("failed event must not cancel orders, got %s", reloaded.Status)
	}
	var reloadedMenu models.Menu
	db.First(&reloadedMenu, "id = ?", menu.ID)
	if reloadedMenu.MaxOrders != 3 {
		t.Errorf("failed event must not restore capacity, got %d", reloadedMenu.MaxOrders)
	}
}
