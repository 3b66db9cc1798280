package postgres

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shoplane/identity-service/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	var roles []string
	if row.Roles != "" {
		_ = json.Unmarshal([]byte(row.Roles), &roles)
	}
	return domain.User{
		UserID:         row.UserID,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		Name:           row.Name,
		Status:         domain.UserStatus(row.Status),
		Roles:          roles,
		EmailVerified:  row.EmailVerified,
		MFAEnabled:     row.MFAEnabled,
		TOTPEnabled:    row.TOTPEnabled,
		TOTPSecret:     row.TOTPSecret,
		PhoneNumber:    row.PhoneNumber,
		FailedAttempts: row.FailedAttempts,
		LockedUntil:    row.LockedUntil,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		DeletedAt:      row.DeletedAt,
	}
}

func toDomainEvent(row authEventModel) domain.Event {
	causation := ""
	if row.CausationID != nil {
		causation = *row.CausationID
	}
	return domain.Event{
		EventID:       row.EventID,
		EventType:     row.EventType,
		EventVersion:  row.EventVersion,
		Timestamp:     row.OccurredAt,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		CorrelationID: row.CorrelationID,
		CausationID:   causation,
		Payload:       json.RawMessage(row.Payload),
	}
}

func toEventModel(event domain.Event) authEventModel {
	payload := string(event.Payload)
	if payload == "" {
		payload = "{}"
	}
	return authEventModel{
		EventID:       event.EventID,
		EventType:     event.EventType,
		EventVersion:  event.EventVersion,
		OccurredAt:    event.Timestamp,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		CorrelationID: event.CorrelationID,
		CausationID:   nullableString(event.CausationID),
		Payload:       payload,
	}
}

func toDomainLoginAttempt(row loginAttemptModel) domain.LoginAttempt {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.LoginAttempt{
		ID:            row.ID,
		UserID:        row.UserID,
		AttemptAt:     row.AttemptAt,
		IPAddress:     ip,
		Status:        row.Status,
		FailureReason: row.FailureReason,
		UserAgent:     row.UserAgent,
		DeviceID:      row.DeviceID,
	}
}

func marshalRoles(roles []string) string {
	if len(roles) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(roles)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
