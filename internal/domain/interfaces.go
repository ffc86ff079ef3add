package domain

import (
	"context"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// AccountStore owns persisted entitlement state.
//
// Save is a conditional write: it succeeds only when the stored version equals
// account.Version, and on success it stores and sets account.Version to the
// next version. A mismatch returns ErrVersionConflict and writes nothing.
type AccountStore interface {
	Get(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
	// ListExpiredPremium returns ids of premium accounts whose window ended at or before now.
	ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// PaymentVerification is what the payment collaborator reports for an order.
type PaymentVerification struct {
	Reference       string
	Completed       bool
	Plan            string
	ClientReference string
}

// PaymentVerifier confirms an order with the payment provider.
type PaymentVerifier interface {
	Verify(ctx context.Context, orderID string) (*PaymentVerification, error)
}

// PaymentLedger remembers which payment references have been turned into a
// grant. A reference is claimed at most once across all accounts; Claim
// returns ErrPaymentAlreadyRedeemed for a second attempt.
type PaymentLedger interface {
	Claim(ctx context.Context, reference, accountID string) error
	// Release forgets a claim whose grant could not be applied.
	Release(ctx context.Context, reference string) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetAppEnv() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetJWTSecret() string
	GetAuthProvider() string
	GetStoreBackend() string
	GetHistoryBackend() string
	GetRedisURL() string
	GetDatabaseURL() string
	GetDailyMessageLimit() int
	GetQuotaLocation() *time.Location
	GetGateMaxAttempts() int
	GetPromoCodes() map[string]*time.Duration
	GetStripeSecretKey() string
	GetOpenAIAPIKey() string
	GetOpenAIModel() string
	GetGCPProjectID() string
	GetGCPLocation() string
	GetBotProvider() string
	GetExpirySweepSchedule() string
	GetRateLimitPerMinute() int
	GetSentryDSN() string
	GetAllowedOrigins() []string
	GetAdminSecret() string
	GetImageBucket() string
}
