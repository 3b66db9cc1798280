package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ? AND deleted_at IS NULL", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// RecordAuthFailure increments the failure counter under a row lock and, when
// the threshold is crossed, flips the account to LOCKED and appends the lock
// event plus its outbox row in the same transaction. Concurrent failures for
// one account serialize on the row lock, so exactly one of them locks.
func (r *userRepository) RecordAuthFailure(ctx context.Context, params ports.RecordAuthFailureParams) (ports.AuthFailureResult, error) {
	var result ports.AuthFailureResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", params.UserID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		now := utcOrNow(params.Now)
		rec.FailedAttempts++
		result.FailedAttempts = rec.FailedAttempts

		updates := map[string]any{
			"failed_attempts": rec.FailedAttempts,
			"updated_at":      now,
		}

		alreadyLocked := rec.Status == string(domain.StatusLocked) &&
			rec.LockedUntil != nil && rec.LockedUntil.After(now)
		shouldLock := !alreadyLocked && rec.FailedAttempts >= params.Threshold

		if shouldLock {
			lockedUntil := now.Add(params.LockoutDuration)
			updates["status"] = string(domain.StatusLocked)
			updates["locked_until"] = lockedUntil
			result.Locked = true
			result.LockedUntil = &lockedUntil
		} else if alreadyLocked {
			result.Locked = true
			result.LockedUntil = rec.LockedUntil
		}

		if err := tx.Model(&userModel{}).
			Where("user_id = ?", params.UserID).
			Updates(updates).Error; err != nil {
			return err
		}

		if shouldLock && params.BuildLockEvent != nil {
			event, msg := params.BuildLockEvent(rec.FailedAttempts, *result.LockedUntil)
			eventRow := toEventModel(event)
			if err := tx.Create(&eventRow).Error; err != nil {
				return err
			}
			outboxRow := authOutboxModel{
				EventID:      msg.EventID,
				EventType:    msg.EventType,
				Topic:        msg.Topic,
				PartitionKey: msg.PartitionKey,
				Payload:      string(msg.Payload),
				CreatedAt:    utcOrNow(msg.CreatedAt),
			}
			if err := tx.Create(&outboxRow).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ports.AuthFailureResult{}, err
	}
	return result, nil
}

// ResetFailedAttempts clears the counter and releases an elapsed lockout.
func (r *userRepository) ResetFailedAttempts(ctx context.Context, userID uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"failed_attempts": 0,
			"locked_until":    nil,
			"status": gorm.Expr(
				"CASE WHEN status = ? THEN ? ELSE status END",
				string(domain.StatusLocked), string(domain.StatusActive),
			),
			"updated_at": utcOrNow(now),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) CreateFromRegistration(ctx context.Context, params ports.CreateUserParams) (domain.User, error) {
	at := utcOrNow(params.RegisteredAt)
	rec := userModel{
		UserID:       params.UserID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Name:         params.Name,
		Status:       string(domain.StatusPendingVerification),
		Roles:        marshalRoles([]string{"customer"}),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) Activate(ctx context.Context, userID uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"status":         string(domain.StatusActive),
			"email_verified": true,
			"updated_at":     utcOrNow(now),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetMFAEnrollment flips one method's enrollment. mfa_enabled is recomputed
// from the other method's columns so disabling one factor never disables MFA
// for a user who still has the other.
func (r *userRepository) SetMFAEnrollment(ctx context.Context, params ports.MFAEnrollmentParams) error {
	updates := map[string]any{
		"updated_at": utcOrNow(params.Now),
	}
	switch params.Method {
	case domain.MethodTOTP:
		if params.Enabled {
			updates["totp_enabled"] = true
			updates["totp_secret"] = params.TOTPSecret
			updates["mfa_enabled"] = true
		} else {
			updates["totp_enabled"] = false
			updates["totp_secret"] = ""
			updates["mfa_enabled"] = gorm.Expr("phone_number <> ''")
		}
	case domain.MethodSMS:
		if params.Enabled {
			updates["phone_number"] = params.PhoneNumber
			updates["mfa_enabled"] = true
		} else {
			updates["phone_number"] = ""
			updates["mfa_enabled"] = gorm.Expr("totp_enabled")
		}
	}
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", params.UserID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
