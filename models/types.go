package models

import (
	"fmt"
	"time"
)

// TurnStatus is stored as an integer; the values are part of the API.
type TurnStatus int

const (
	StatusPending TurnStatus = iota
	StatusAttended
	StatusSkipped
	StatusCancelled
)

func (s TurnStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusAttended:
		return "ATTENDED"
	case StatusSkipped:
		return "SKIPPED"
	case StatusCancelled:
		return "CANCELLED"
	}
	return fmt.Sprintf("TurnStatus(%d)", int(s))
}

// Registration purposes
const (
	PurposeClient = "client"
	PurposeShop   = "shop"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidJSON           = "INVALID_JSON"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeInvalidClientID       = "INVALID_CLIENT_ID"
	CodeInvalidShopID         = "INVALID_SHOP_ID"
	CodeInvalidTurnID         = "INVALID_TURN_ID"
	CodeShopNotFound          = "SHOP_NOT_FOUND"
	CodeTurnNotFound          = "TURN_NOT_FOUND"
	CodeTurnNotPending        = "TURN_NOT_PENDING"
	CodeActiveTurn            = "ACTIVE_TURN"
	CodePendingQuotaExceeded  = "PENDING_TURNS_QUOTA_EXCEEDED"
	CodeTodayQuotaExceeded    = "TODAY_TURNS_QUOTA_EXCEEDED"
	CodeNoPendingTurns        = "NO_PENDING_TURNS"
	CodeShopExists            = "SHOP_EXISTS"
	CodeInvalidName           = "INVALID_NAME"
	CodeRegistrationDisabled  = "REGISTRATION_DISABLED"
	CodeInvalidCaptcha        = "INVALID_CAPTCHA"
	CodeInvalidPhone          = "INVALID_PHONE"
	CodeInvalidNationalPhone  = "INVALID_NATIONAL_PHONE"
	CodeInProgress            = "IN_PROGRESS_VERIFICATION"
	CodeLimitCodeSentExceeded = "LIMIT_CODE_SENT_EXCEEDED"
	CodePhoneNotRegistered    = "PHONE_NOT_REGISTERED"
	CodeCodeExpired           = "CODE_EXPIRED"
	CodeIncorrectCode         = "INCORRECT_CODE"
	CodeSMSError              = "SMS_ERROR"
	CodeRateLimited           = "RATE_LIMITED"
	CodeOpError               = "OP_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

// Request types

type VerifyPhoneRequest struct {
	Phone   string `json:"phone"`
	Token   string `json:"token"` // reCAPTCHA token
	Purpose string `json:"purpose,omitempty"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  int    `json:"code"`
}

type ShopRequest struct {
	Name string `json:"name"`
}

// Response types

type VerifyPhoneResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn string    `json:"expires_in"`
}

type VerifyCodeResponse struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
	IsNew    bool   `json:"is_new"`
}

type RegistrationResponse struct {
	ClientEnabled bool `json:"client_enabled"`
	ShopEnabled   bool `json:"shop_enabled"`
}

type ClientInfo struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	ShopID     *string   `json:"shop_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type CreateShopResponse struct {
	ShopID   string `json:"shop_id"`
	ShareURL string `json:"share_url"`
}

type RequestTurnResponse struct {
	ID                 string `json:"id"`
	Turn               string `json:"turn"`
	ShopName           string `json:"shop_name"`
	GoToShop           bool   `json:"go_to_shop"`
	PendingTurnsAmount int    `json:"pending_turns_amount"`
}

type CancelTurnResponse struct {
	Cancelled bool `json:"cancelled"`
}

type TurnView struct {
	ID          string     `json:"id"`
	ShopID      string     `json:"shop_id"`
	ShopName    string     `json:"shop_name"`
	Turn        string     `json:"turn"`
	Status      TurnStatus `json:"status"`
	StatusName  string     `json:"status_name"`
	PeopleAhead *int       `json:"people_ahead,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TurnsResponse struct {
	Turns []TurnView `json:"turns"`
}

type ShopDetails struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MyShopResponse struct {
	Details            ShopDetails `json:"details"`
	NextTurn           string      `json:"next_turn"`
	LastTurnsAttended  []string    `json:"last_turns_attended"`
	PendingTurnsAmount int         `json:"pending_turns_amount"`
	Cancelled          *int        `json:"cancelled,omitempty"`
}

type PublicShopResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	NextTurn           string `json:"next_turn"`
	PendingTurnsAmount int    `json:"pending_turns_amount"`
}

// Domain types

type Client struct {
	ID         int64
	Phone      string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

type Shop struct {
	ID            int64
	OwnerClientID int64
	Name          string
	Counter       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IssuedNumber is one turn in a shop's line.
type IssuedNumber struct {
	ID           int64
	ShopID       int64
	ClientID     int64
	IssuedNumber int64
	Status       TurnStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NotifiedAt   *time.Time
}

type PhoneVerification struct {
	ID         int64
	Phone      string
	CodeHash   string
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// Error response

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
