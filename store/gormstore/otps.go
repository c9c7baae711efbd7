package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/chainAuth/store"
	"gorm.io/gorm"
)

type otpRow struct {
	ID        string `gorm:"primaryKey"`
	Email     string
	CodeHash  string
	Verified  bool
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (otpRow) TableName() string { return "otp_records" }

func (r otpRow) toOTP() *store.OTP {
	return &store.OTP{
		ID:        r.ID,
		Email:     r.Email,
		CodeHash:  r.CodeHash,
		Verified:  r.Verified,
		Attempts:  r.Attempts,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

func toOTPRow(o *store.OTP) otpRow {
	return otpRow{
		ID:        o.ID,
		Email:     o.Email,
		CodeHash:  o.CodeHash,
		Verified:  o.Verified,
		Attempts:  o.Attempts,
		CreatedAt: o.CreatedAt.UTC(),
		ExpiresAt: o.ExpiresAt.UTC(),
	}
}

func (s *Store) CreateOTP(ctx context.Context, otp *store.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = s.now()
	}
	row := toOTPRow(otp)
	return mapError(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *Store) FindLatestUnverifiedOTP(ctx context.Context, email string) (*store.OTP, error) {
	var row otpRow
	err := s.db.WithContext(ctx).
		Where("email = ? AND verified = ?", email, false).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		return nil, mapError(err)
	}
	return row.toOTP(), nil
}

// IncrementOTPAttempts compares and sets the counter, so the returned count is
// the one this call wrote even when other verifies race on the same record.
func (s *Store) IncrementOTPAttempts(ctx context.Context, id string, maxAttempts int) (int, error) {
	db := s.db.WithContext(ctx)
	for {
		var row otpRow
		err := db.Select("attempts", "verified").Where("id = ?", id).Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, store.ErrStaleTransition
			}
			return 0, mapError(err)
		}
		if row.Verified || row.Attempts >= maxAttempts {
			return 0, store.ErrStaleTransition
		}

		res := db.Model(&otpRow{}).
			Where("id = ? AND verified = ? AND attempts = ?", id, false, row.Attempts).
			UpdateColumn("attempts", row.Attempts+1)
		if res.Error != nil {
			return 0, mapError(res.Error)
		}
		if res.RowsAffected == 1 {
			return row.Attempts + 1, nil
		}
	}
}

func (s *Store) MarkOTPVerified(ctx context.Context, id string, maxAttempts int) error {
	res := s.db.WithContext(ctx).
		Model(&otpRow{}).
		Where("id = ? AND verified = ? AND attempts < ?", id, false, maxAttempts).
		UpdateColumn("verified", true)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrStaleTransition
	}
	return nil
}

func (s *Store) SaveOTP(ctx context.Context, otp *store.OTP) error {
	row := toOTPRow(otp)
	return mapError(s.db.WithContext(ctx).Save(&row).Error)
}

func (s *Store) CountOTPsSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&otpRow{}).
		Where("email = ? AND created_at >= ?", email, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *Store) DeleteOTPsByEmail(ctx context.Context, emails ...string) error {
	if len(emails) == 0 {
		return nil
	}
	return mapError(s.db.WithContext(ctx).Where("email IN ?", emails).Delete(&otpRow{}).Error)
}
