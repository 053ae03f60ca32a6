// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/cauda/auth"
	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/db"
	"github.com/danielhkuo/cauda/models"
)

// SetupTestDB creates a fresh SQLite database in a temp dir with the full
// schema. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cauda_test.db")
	conn, err := db.Open(db.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.DriverSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                      3318,
		DatabaseURL:               "file::memory:",
		DatabaseType:              db.DriverSQLite,
		BaseURL:                   "https://cauda.test",
		TokenSecret:               "test-session-secret",
		IDSalt:                    "test-id-salt",
		RecaptchaMinScore:         0.5,
		PhoneRegion:               "AR",
		Timezone:                  "UTC",
		Location:                  time.UTC,
		ClientRegistrationEnabled: true,
		ShopRegistrationEnabled:   true,
		GoToShopThreshold:         3,
		MaxPendingTurns:           3,
		MaxDailyTurns:             5,
		CodeTTL:                   5 * time.Minute,
		MaxCodesPerDay:            3,
		MaxCodeAttempts:           5,
		SessionTTL:                24 * time.Hour,
		RateLimitPerMinute:        10,
	}
}

// TestIDs returns the id codec matching GetTestConfig.
func TestIDs(t *testing.T) *auth.IDCodec {
	t.Helper()
	ids, err := auth.NewIDCodec(GetTestConfig().IDSalt)
	if err != nil {
		t.Fatalf("Failed to create id codec: %v", err)
	}
	return ids
}

// CreateTestClient inserts a client with the given E.164 phone and returns its id
func CreateTestClient(t *testing.T, conn *sql.DB, phone string) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := conn.QueryRow(`
		INSERT INTO client (phone, created_at, last_seen_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, phone, now, now).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}

	return id
}

// CreateTestShop inserts a shop owned by ownerID and returns its id
func CreateTestShop(t *testing.T, conn *sql.DB, ownerID int64, name string) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := conn.QueryRow(`
		INSERT INTO shop (owner_client_id, name, counter, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4)
		RETURNING id
	`, ownerID, name, now, now).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test shop: %v", err)
	}

	return id
}

// CreateTestTurn issues the shop's next number to the client with the given
// status and creation time, bumping the shop counter. Returns the turn id.
func CreateTestTurn(t *testing.T, conn *sql.DB, shopID, clientID int64, status models.TurnStatus, createdAt time.Time) int64 {
	t.Helper()

	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	// threshold 0 leaves notified_at empty
	turn, err := db.IncreaseShopCounter(ctx, tx, shopID, clientID, 0, createdAt.UTC())
	if err != nil {
		t.Fatalf("Failed to issue test turn: %v", err)
	}

	if status != models.StatusPending {
		_, err = tx.Exec(`UPDATE issued_number SET status = $1 WHERE id = $2`, int(status), turn.ID)
		if err != nil {
			t.Fatalf("Failed to set test turn status: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit test turn: %v", err)
	}

	return turn.ID
}

// TurnStatus reads a turn's current status
func TurnStatus(t *testing.T, conn *sql.DB, turnID int64) models.TurnStatus {
	t.Helper()

	var status int
	if err := conn.QueryRow(`SELECT status FROM issued_number WHERE id = $1`, turnID).Scan(&status); err != nil {
		t.Fatalf("Failed to read turn status: %v", err)
	}
	return models.TurnStatus(status)
}

// AuthHeader returns an Authorization header carrying a session for the client
func AuthHeader(t *testing.T, cfg cliparse.Config, clientID int64, phone string) map[string]string {
	t.Helper()

	token, err := auth.IssueToken(clientID, phone, cfg.TokenSecret, cfg.SessionTTL)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// SentSMS is one message captured by SMSRecorder
type SentSMS struct {
	To   string
	Body string
}

// SMSRecorder is a phone.Sender that keeps every message. When Err is set
// Send fails with it instead.
type SMSRecorder struct {
	mu   sync.Mutex
	Sent []SentSMS
	Err  error
}

func (s *SMSRecorder) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentSMS{To: to, Body: body})
	return nil
}

// Messages returns a copy of what was sent so far
func (s *SMSRecorder) Messages() []SentSMS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentSMS(nil), s.Sent...)
}

// StubCaptcha is a captcha.Verifier returning Err for every token
type StubCaptcha struct {
	Err error
}

func (c StubCaptcha) Verify(ctx context.Context, token, action, remoteIP string) error {
	return c.Err
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertErrorCode checks status and the stable error code of an error response
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) models.ErrorResponse {
	t.Helper()
	AssertStatus(t, w, status)

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v. Body: %s", err, w.Body.String())
	}
	if resp.Code != code {
		t.Errorf("Expected error code %s, got %s (%s)", code, resp.Code, resp.Message)
	}
	return resp
}
