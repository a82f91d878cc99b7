package repository

import (
	"context"
	"errors"
	"fmt"

	"VTube/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")

const mysqlDuplicateEntry = 1062

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when no record matches.
type UserRepository interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *model.User) error
	FindPublicByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	UpdateRefreshToken(ctx context.Context, id int64, token string) error
	// Transaction runs fn against a repository bound to one database transaction.
	// Returning an error from fn rolls the transaction back.
	Transaction(ctx context.Context, fn func(repo UserRepository) error) error
}

// gormUserRepository implements UserRepository with GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM-backed user repository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// ExistsByUsernameOrEmail reports whether any user has the given username or email.
// Callers pass already-normalized values.
func (r *gormUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing user: %w", err)
	}
	return count > 0, nil
}

// Create inserts a user. Unique index violations become ErrDuplicateUser.
func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("failed to create user %s: %w", user.Username, ErrDuplicateUser)
		}
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// FindPublicByID loads a user without the password and refresh token columns.
func (r *gormUserRepository) FindPublicByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Omit(model.SensitiveUserColumns...).
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}

// FindByUsernameOrEmail loads the full record, password digest included, for credential checks.
func (r *gormUserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user %s: %w", identifier, err)
	}
	return &user, nil
}

// UpdateRefreshToken stores (or clears, with "") the user's refresh token.
func (r *gormUserRepository) UpdateRefreshToken(ctx context.Context, id int64, token string) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("refresh_token", token).Error
	if err != nil {
		return fmt.Errorf("failed to update refresh token for user %d: %w", id, err)
	}
	return nil
}

// Transaction wraps gorm's transaction helper.
func (r *gormUserRepository) Transaction(ctx context.Context, fn func(repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormUserRepository{db: tx})
	})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
