package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ariebrainware/telemed-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess        SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure        SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess       SecurityEventType = "SIGNUP_SUCCESS"
	EventLogout              SecurityEventType = "LOGOUT"
	EventPasswordChanged     SecurityEventType = "PASSWORD_CHANGED"
	EventOTPIssued           SecurityEventType = "OTP_ISSUED"
	EventResetLinkIssued     SecurityEventType = "RESET_LINK_ISSUED"
	EventRegistryCheckFailed SecurityEventType = "REGISTRY_CHECK_FAILED"
	EventAccountConflict     SecurityEventType = "ACCOUNT_CONFLICT"
	EventUnauthorizedAccess  SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded   SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventEndpointCall        SecurityEventType = "ENDPOINT_CALL"
	EventRegistryReset       SecurityEventType = "REGISTRY_RESET"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	Role      string
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

// LoginParams describes the actor of a login, logout or signup event.
type LoginParams struct {
	Role      string
	UserID    uint
	Email     string
	IP        string
	UserAgent string
	Reason    string
}

// UnauthorizedAccessParams describes a rejected request.
type UnauthorizedAccessParams struct {
	Role     string
	UserID   string
	Email    string
	IP       string
	Resource string
	Reason   string
}

// RateLimitParams describes a throttled request.
type RateLimitParams struct {
	Email    string
	IP       string
	Endpoint string
}

var (
	securityMu     sync.RWMutex
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
	securityDB     *gorm.DB
)

// SetSecurityLoggerDB sets the gorm DB the security logger persists into.
// Call it during startup after the database is migrated.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityDB = db
}

func currentSecurityLogger() (*log.Logger, *gorm.DB) {
	securityMu.RLock()
	defer securityMu.RUnlock()
	return securityLogger, securityDB
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

func formatLocation(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + "/" + country
	case country != "":
		return country
	default:
		return city
	}
}

// LogSecurityEvent logs a security event and persists it when a DB is set.
// Persistence is best effort and never fails the caller.
func LogSecurityEvent(event SecurityEvent) {
	logger, db := currentSecurityLogger()

	msg := fmt.Sprintf("Event=%s Role=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.Role),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)
	if len(event.Details) > 0 {
		// Only the count goes to the text log; the JSON column keeps the values.
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}
	logger.Println(msg)

	if db == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	entry := model.SecurityLog{
		EventType: string(event.EventType),
		Role:      event.Role,
		UserID:    event.UserID,
		Email:     sanitizeLogValue(event.Email),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(GetIPLocation(event.IP).String()),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Printf("Failed to persist security event: %v", err)
	}
}

func idString(id uint) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Role:      p.Role,
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   fmt.Sprintf("Login failed: %s", p.Reason),
	})
}

// LogSignupSuccess logs a new account.
func LogSignupSuccess(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventSignupSuccess,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "Account created",
	})
}

// LogLogout logs a logout event
func LogLogout(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged out",
	})
}

// LogPasswordChanged logs a completed password reset.
func LogPasswordChanged(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventPasswordChanged,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   fmt.Sprintf("Password changed via %s", p.Reason),
	})
}

// LogOTPIssued logs that a one-time code was generated and mailed.
func LogOTPIssued(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventOTPIssued,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "One-time code issued",
	})
}

// LogRegistryCheckFailed logs a doctor login whose registry number did not verify.
func LogRegistryCheckFailed(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRegistryCheckFailed,
		Role:      p.Role,
		UserID:    idString(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "Registry verification failed",
		Details:   map[string]interface{}{"submitted_number": p.Reason},
	})
}

// LogUnauthorizedAccess logs unauthorized access attempts
func LogUnauthorizedAccess(p UnauthorizedAccessParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		Role:      p.Role,
		UserID:    p.UserID,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", p.Resource, p.Reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(p RateLimitParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", p.Endpoint),
	})
}

// GetSecurityLoggerForTest returns the current security logger for testing purposes
func GetSecurityLoggerForTest() *log.Logger {
	logger, _ := currentSecurityLogger()
	return logger
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityLogger = logger
}
