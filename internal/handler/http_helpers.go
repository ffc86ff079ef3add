package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"

	"chat-assistant-server/internal/domain"
	apperrors "chat-assistant-server/pkg/errors"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// WithIdentity stores the authenticated identity and its token on ctx.
func WithIdentity(ctx context.Context, identity *domain.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, identity)
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetUserFromContext extracts the authenticated identity from request context
func GetUserFromContext(r *http.Request) (*domain.Identity, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.Identity)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	body := map[string]string{"error": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	writeJSON(w, appErr.StatusCode, body)
}

// writeServiceError translates service errors into HTTP responses. Server
// side failures are logged and reported to Sentry.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger domain.Logger, err error) {
	appErr := toAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "method", r.Method, "path", r.URL.Path)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	}
	writeAppError(w, appErr)
}

func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.NewValidationError("Invalid request", verr.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		return apperrors.NewUnauthorizedError("Account not found")
	case errors.Is(err, domain.ErrInvalidToken):
		return apperrors.NewUnauthorizedError("Invalid token")
	case errors.Is(err, domain.ErrInvalidPromoCode):
		return apperrors.NewValidationError("Invalid promo code")
	case errors.Is(err, domain.ErrPaymentNotCompleted), errors.Is(err, domain.ErrInvalidGrant):
		return apperrors.NewValidationError("Payment verification failed")
	case errors.Is(err, domain.ErrPaymentNotConfigured):
		return apperrors.NewNetworkError("Payments are not available", err)
	case errors.Is(err, domain.ErrConflict):
		return apperrors.NewConflictError("Account is busy, please retry", err)
	case errors.Is(err, domain.ErrResponderUnavailable):
		return apperrors.NewNetworkError("Failed to process message", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewNetworkError("Request cancelled", err)
	default:
		return apperrors.NewInternalError("Internal server error", err)
	}
}

// decodeJSON reads a bounded JSON body into dst and validates its tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *apperrors.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return apperrors.NewValidationError("Invalid request", strings.Join(fields, "; "))
		}
		return apperrors.NewValidationError("Invalid request")
	}
	return nil
}
