package gormstore

import (
	"context"
	"time"

	"github.com/MrEthical07/chainAuth/store"
	"gorm.io/gorm"
)

type userRow struct {
	ID                    string `gorm:"primaryKey"`
	Username              string
	Email                 string
	PasswordHash          string
	WalletAddress         *string
	WalletType            *string
	RegistrationSignature *string
	RegistrationStep      int
	RegistrationComplete  bool
	IsEmailVerified       bool
	IsWalletVerified      bool
	LastLogin             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (userRow) TableName() string { return "users" }

func toUserRow(u *store.User) userRow {
	row := userRow{
		ID:                    u.ID,
		Username:              u.Username,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		WalletAddress:         nullable(u.WalletAddress),
		WalletType:            nullable(u.WalletType),
		RegistrationSignature: nullable(u.RegistrationSignature),
		RegistrationStep:      u.RegistrationStep,
		RegistrationComplete:  u.RegistrationComplete,
		IsEmailVerified:       u.IsEmailVerified,
		IsWalletVerified:      u.IsWalletVerified,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
	if !u.LastLogin.IsZero() {
		last := u.LastLogin.UTC()
		row.LastLogin = &last
	}
	return row
}

func (r userRow) toUser() *store.User {
	u := &store.User{
		ID:                    r.ID,
		Username:              r.Username,
		Email:                 r.Email,
		PasswordHash:          r.PasswordHash,
		WalletAddress:         deref(r.WalletAddress),
		WalletType:            deref(r.WalletType),
		RegistrationSignature: deref(r.RegistrationSignature),
		RegistrationStep:      r.RegistrationStep,
		RegistrationComplete:  r.RegistrationComplete,
		IsEmailVerified:       r.IsEmailVerified,
		IsWalletVerified:      r.IsWalletVerified,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
	if r.LastLogin != nil {
		u.LastLogin = *r.LastLogin
	}
	return u
}

func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.RegistrationStep == 0 {
		user.RegistrationStep = store.StepBasicInfo
	}

	row := toUserRow(user)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return s.duplicateOf(ctx, user)
		}
		return mapError(err)
	}
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*store.User, error) {
	return s.findUser(ctx, "username = ? OR email = ?", username, email)
}

func (s *Store) FindUserByWallet(ctx context.Context, address, excludingUserID string) (*store.User, error) {
	if excludingUserID == "" {
		return s.findUser(ctx, "wallet_address = ?", address)
	}
	return s.findUser(ctx, "wallet_address = ? AND id <> ?", address, excludingUserID)
}

func (s *Store) findUser(ctx context.Context, query string, args ...any) (*store.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, args...).Order("created_at").First(&row).Error
	if err != nil {
		return nil, mapError(err)
	}
	return row.toUser(), nil
}

func (s *Store) SaveUser(ctx context.Context, user *store.User) error {
	user.UpdatedAt = s.now()
	row := toUserRow(user)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		if isDuplicate(err) {
			return s.duplicateOf(ctx, user)
		}
		return mapError(err)
	}
	return nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ? AND registration_step = ?", id, store.StepBasicInfo).
		Updates(map[string]any{
			"is_email_verified": true,
			"registration_step": store.StepEmailVerified,
			"updated_at":        s.now(),
		})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrStaleTransition
	}
	return nil
}

func (s *Store) BindWallet(ctx context.Context, id string, binding store.WalletBinding) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ? AND registration_step = ?", id, store.StepEmailVerified).
		Updates(map[string]any{
			"wallet_address":         binding.Address,
			"wallet_type":            binding.Type,
			"registration_signature": nullable(binding.Signature),
			"is_wallet_verified":     true,
			"registration_step":      store.StepComplete,
			"registration_complete":  true,
			"updated_at":             s.now(),
		})
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return &store.DuplicateError{Field: store.FieldWallet}
		}
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrStaleTransition
	}
	return nil
}

func (s *Store) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_login": at.UTC(),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userRow{}).
			Where("registration_complete = ? AND created_at < ?", false, cutoff.UTC()).
			Pluck("email", &emails).Error; err != nil {
			return err
		}
		if len(emails) == 0 {
			return nil
		}
		return tx.Where("registration_complete = ? AND email IN ?", false, emails).Delete(&userRow{}).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return emails, nil
}

func (s *Store) DeleteIncompleteByEmail(ctx context.Context, email string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("email = ? AND registration_complete = ?", email, false).
		Delete(&userRow{})
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CountIncomplete(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("registration_complete = ?", false).Count(&n).Error; err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// duplicateOf resolves which unique field a failed write collided on.
func (s *Store) duplicateOf(ctx context.Context, user *store.User) error {
	if other, err := s.FindUserByUsername(ctx, user.Username); err == nil && other.ID != user.ID {
		return &store.DuplicateError{Field: store.FieldUsername}
	}
	if other, err := s.FindUserByEmail(ctx, user.Email); err == nil && other.ID != user.ID {
		return &store.DuplicateError{Field: store.FieldEmail}
	}
	if user.WalletAddress != "" {
		if _, err := s.FindUserByWallet(ctx, user.WalletAddress, user.ID); err == nil {
			return &store.DuplicateError{Field: store.FieldWallet}
		}
	}
	return &store.DuplicateError{Field: "id"}
}
