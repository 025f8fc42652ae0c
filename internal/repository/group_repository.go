package repository

import (
	"context"

	"github.com/timesheet-api/internal/domain"
	"gorm.io/gorm"
)

// GroupRepository определяет интерфейс для работы с группами доступа
type GroupRepository interface {
	Ensure(ctx context.Context, name string) (*domain.Group, error)
	GetByNames(ctx context.Context, names []string) ([]domain.Group, error)
	List(ctx context.Context) ([]domain.Group, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository создаёт новый экземпляр репозитория
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Ensure возвращает группу, создавая её при отсутствии
func (r *groupRepository) Ensure(ctx context.Context, name string) (*domain.Group, error) {
	group := domain.Group{Name: name}
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		FirstOrCreate(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByNames возвращает группы по именам; отсутствие любой из них - ошибка
func (r *groupRepository) GetByNames(ctx context.Context, names []string) ([]domain.Group, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var groups []domain.Group
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&groups).Error; err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(groups))
	for _, g := range groups {
		found[g.Name] = true
	}
	for _, name := range names {
		if !found[name] {
			return nil, domain.ErrGroupNotFound
		}
	}
	return groups, nil
}

func (r *groupRepository) List(ctx context.Context) ([]domain.Group, error) {
	var groups []domain.Group
	err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}
