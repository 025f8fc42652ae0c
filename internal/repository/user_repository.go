package repository

import (
	"context"
	"errors"

	"github.com/timesheet-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository определяет интерфейс для работы с учётными записями
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByUsernameInGroup(ctx context.Context, username, group string) (*domain.User, error)
	ListByActive(ctx context.Context, active bool) ([]domain.User, error)
	ListGroupMembers(ctx context.Context, group string, activeOnly bool) ([]domain.User, error)
	ReplaceGroups(ctx context.Context, userID int64, groups []domain.Group) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetPassword(ctx context.Context, id int64, hash string) error
	UpdateProfile(ctx context.Context, user *domain.User) error
}

// userGroup - строка связующей таблицы user_groups
type userGroup struct {
	UserID  int64 `gorm:"primaryKey"`
	GroupID int64 `gorm:"primaryKey"`
}

func (userGroup) TableName() string {
	return "user_groups"
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый экземпляр репозитория
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	groups := user.Groups

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrUsernameTaken
			}
			return err
		}
		return insertUserGroups(tx, user.ID, groups)
	})
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Groups").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsernameInGroup(ctx context.Context, username, group string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Joins("JOIN user_groups ug ON ug.user_id = users.id").
		Joins("JOIN auth_groups g ON g.id = ug.group_id").
		Where("users.username = ? AND g.name = ?", username, group).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByActive(ctx context.Context, active bool) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Where("is_active = ?", active).
		Order("username ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) ListGroupMembers(ctx context.Context, group string, activeOnly bool) ([]domain.User, error) {
	query := r.db.WithContext(ctx).
		Preload("Groups").
		Joins("JOIN user_groups ug ON ug.user_id = users.id").
		Joins("JOIN auth_groups g ON g.id = ug.group_id").
		Where("g.name = ?", group)

	if activeOnly {
		query = query.Where("users.is_active = ?", true)
	}

	var users []domain.User
	err := query.Order("users.username ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) ReplaceGroups(ctx context.Context, userID int64, groups []domain.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userGroup{}).Error; err != nil {
			return err
		}
		return insertUserGroups(tx, userID, groups)
	})
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateProfile сохраняет имя и почту
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func insertUserGroups(tx *gorm.DB, userID int64, groups []domain.Group) error {
	if len(groups) == 0 {
		return nil
	}
	links := make([]userGroup, 0, len(groups))
	for _, g := range groups {
		links = append(links, userGroup{UserID: userID, GroupID: g.ID})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}
