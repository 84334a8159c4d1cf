package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Subscription lifecycle statuses mirrored from the billing provider.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// User is an account that submits profiles for analysis. Plan and counters are
// mutated only by the usage recorder (increments) and the billing service
// (plan changes + counter resets).
type User struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Email  string `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Role   string `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Plan   string `gorm:"type:varchar(20);not null;default:'free';index" json:"plan" validate:"oneof=free starter pro team"`

	// Billing provider references. The subscription status mirrors the
	// provider-side lifecycle and is informational for the core.
	StripeCustomerID     string `gorm:"type:varchar(255);default:'';index" json:"-"`
	StripeSubscriptionID string `gorm:"type:varchar(255);default:''" json:"-"`
	SubscriptionStatus   string `gorm:"type:varchar(50);default:''" json:"subscription_status"`

	// Usage tracking. Free accounts count against the lifetime counter, paid
	// accounts against the monthly counter; the other one is inert.
	LifetimeAnalysesCount  int        `gorm:"not null;default:0" json:"lifetime_analyses_count"`
	MonthlyAnalysesCount   int        `gorm:"not null;default:0" json:"monthly_analyses_count"`
	MonthlyAnalysesResetAt *time.Time `gorm:"type:timestamp;default:null" json:"monthly_analyses_reset_at"`
	LastAnalysisAt         *time.Time `gorm:"type:timestamp;default:null" json:"last_analysis_at"`

	// ICP (ideal customer profile) preferences, opaque to the core.
	ICPConfigJSON string `gorm:"type:longtext" json:"-"`

	// API key material for request authentication.
	APIKeyHash      string     `gorm:"type:char(64);default:'';index" json:"-"`
	APIKeyPrefix    string     `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt *time.Time `json:"api_key_created_at"`
	APIKeyRevokedAt *time.Time `json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a new free-plan account for the given email.
func CreateUser(email string) (*User, error) {
	u := &User{
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Role:   ROLE_USER,
		Status: STATUS_ACTIVE,
		Plan:   "free",
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const apiKeyPrefix = "lrd_"

// IssueAPIKey generates a new API key, persists metadata on the struct, and returns the raw secret.
// Callers must persist the struct via the database after invoking this method.
func (u *User) IssueAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(raw))
	now := time.Now()
	u.APIKeyHash = HashAPIKey(key)
	u.APIKeyPrefix = key[:len(apiKeyPrefix)+4]
	u.APIKeyCreatedAt = &now
	u.APIKeyRevokedAt = nil
	return key, nil
}

// RevokeAPIKey clears the stored API key metadata without deleting the record.
func (u *User) RevokeAPIKey() {
	u.APIKeyHash = ""
	u.APIKeyPrefix = ""
	now := time.Now()
	u.APIKeyRevokedAt = &now
}

// HasActiveAPIKey reports whether the user has an active API key configured
func (u *User) HasActiveAPIKey() bool {
	return u != nil && u.APIKeyHash != "" && u.APIKeyRevokedAt == nil
}

// HashAPIKey returns the hex sha256 digest stored for API key lookups.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}
