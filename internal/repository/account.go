package repository

import (
	"context"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository stores OAuth account mirrors.
type UserRepository interface {
	// UpsertByProvider creates the account or refreshes its profile fields.
	UpsertByProvider(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type userRepository struct {
	db    *gorm.DB
	users *Table[models.User]
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, users: NewTable[models.User](db, "users", "User")}
}

func (r *userRepository) UpsertByProvider(ctx context.Context, u *models.User) (*models.User, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "nickname", "avatar_url", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.users.SelectOne(ctx, Filter{"provider": u.Provider, "provider_id": u.ProviderID})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.users.SelectOne(ctx, Filter{"id": id})
}

// AdminRepository manages the admin allow-list.
type AdminRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, bool, error)
	Delete(ctx context.Context, email string) error
}

type adminRepository struct {
	admins *Table[models.Admin]
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{admins: NewTable[models.Admin](db, "admins", "Admin")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *adminRepository) Create(ctx context.Context, email, passwordHash string) (*models.Admin, error) {
	a := &models.Admin{Email: normalizeEmail(email), PasswordHash: passwordHash}
	if err := r.admins.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, bool, error) {
	return r.admins.MaybeOne(ctx, Filter{"email": normalizeEmail(email)})
}

func (r *adminRepository) Delete(ctx context.Context, email string) error {
	n, err := r.admins.Delete(ctx, Filter{"email": normalizeEmail(email)})
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFoundError("Admin", email)
	}
	return nil
}
