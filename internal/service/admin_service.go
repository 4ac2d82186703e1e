package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

// lastLoginInterval is how stale last_login may get before a login rewrites it.
// Basic auth authenticates every request, so each page view would otherwise be a write.
const lastLoginInterval = 5 * time.Minute

type AdminService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db, now: time.Now}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateCredentials(username, password string) error {
	var flds []model.FieldError
	if username == "" {
		flds = append(flds, model.FieldError{Field: "username", Error: "this field is required"})
	}
	if password == "" {
		flds = append(flds, model.FieldError{Field: "password", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return model.NewValidationError(nil, flds...)
	}
	return nil
}

// UpsertSuperuser creates the user or resets its password, and activates it.
func (s *AdminService) UpsertSuperuser(ctx context.Context, username, password string) (*model.AdminUser, error) {
	username = normalizeUsername(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	var user model.AdminUser
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user.Username = username
		user.IsActive = true
		if err = user.SetPassword(password); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "saving admin user %s", username)
	}
	return &user, nil
}

func (s *AdminService) SetPassword(ctx context.Context, username, password string) error {
	username = normalizeUsername(username)
	if err := validateCredentials(username, password); err != nil {
		return err
	}

	var user model.AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return notFound(err)
	}
	if err := user.SetPassword(password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	err := s.db.WithContext(ctx).Model(&user).Update("password_hash", user.PasswordHash).Error
	return errors.Wrap(err, "updating password")
}

// Authenticate checks the credentials and records the login time, at most once per lastLoginInterval.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*model.AdminUser, error) {
	var user model.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", normalizeUsername(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, errors.Wrap(err, "fetching admin user")
	}
	if err = user.CheckPassword(password); err != nil {
		return nil, ErrAuthenticationFailed
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	now := s.now().UTC()
	if user.LastLogin != nil && now.Sub(*user.LastLogin) < lastLoginInterval {
		return &user, nil
	}
	if err = s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, errors.Wrap(err, "recording login")
	}
	user.LastLogin = &now
	return &user, nil
}

// Deactivate blocks the user from signing in.
func (s *AdminService) Deactivate(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Model(&model.AdminUser{}).
		Where("username = ?", normalizeUsername(username)).
		Update("is_active", false)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deactivating admin user")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
