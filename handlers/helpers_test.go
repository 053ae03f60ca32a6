// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"testing"
	"time"

	"github.com/danielhkuo/cauda/auth"
	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/metrics"
	"github.com/danielhkuo/cauda/testutil"
)

const (
	testPhone      = "+5491123456789"
	testPhoneInput = "+54 9 11 2345-6789"
	ownerPhone     = "+5491187654321"
)

type testEnv struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
	sms *testutil.SMSRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sms := &testutil.SMSRecorder{}
	return &testEnv{
		db:  testutil.SetupTestDB(t),
		cfg: testutil.GetTestConfig(),
		svc: Services{
			IDs:     testutil.TestIDs(t),
			Captcha: testutil.StubCaptcha{},
			SMS:     sms,
			Metrics: metrics.New(),
		},
		sms: sms,
	}
}

// insertVerification stores a code for phone as if it had been sent
func insertVerification(t *testing.T, env *testEnv, phone string, code int, createdAt time.Time, ttl time.Duration, attempts int) int64 {
	t.Helper()

	var id int64
	err := env.db.QueryRow(`
		INSERT INTO phone_verification (phone, code_hash, ip_hash, attempts, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, phone, auth.HashCode(phone, code, env.cfg.TokenSecret), "iphash", attempts,
		createdAt.UTC(), createdAt.Add(ttl).UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert verification: %v", err)
	}
	return id
}

// shopFixture is an owner with a shop and a customer with a session
type shopFixture struct {
	ownerID    int64
	shopID     int64
	shopPublic string
	ownerAuth  map[string]string
	clientID   int64
	clientAuth map[string]string
}

func newShopFixture(t *testing.T, env *testEnv) shopFixture {
	t.Helper()

	ownerID := testutil.CreateTestClient(t, env.db, ownerPhone)
	shopID := testutil.CreateTestShop(t, env.db, ownerID, "Panaderia Lola")
	clientID := testutil.CreateTestClient(t, env.db, testPhone)

	return shopFixture{
		ownerID:    ownerID,
		shopID:     shopID,
		shopPublic: env.svc.IDs.Encode(shopID),
		ownerAuth:  testutil.AuthHeader(t, env.cfg, ownerID, ownerPhone),
		clientID:   clientID,
		clientAuth: testutil.AuthHeader(t, env.cfg, clientID, testPhone),
	}
}

// newCustomer creates another client with a session
func newCustomer(t *testing.T, env *testEnv, phone string) (int64, map[string]string) {
	t.Helper()
	id := testutil.CreateTestClient(t, env.db, phone)
	return id, testutil.AuthHeader(t, env.cfg, id, phone)
}

// markNotified sets notified_at the way RequestTurn does for the front of the line
func markNotified(t *testing.T, env *testEnv, turnIDs ...int64) {
	t.Helper()
	for _, id := range turnIDs {
		if _, err := env.db.Exec(`UPDATE issued_number SET notified_at = created_at WHERE id = $1`, id); err != nil {
			t.Fatalf("Failed to mark turn notified: %v", err)
		}
	}
}
