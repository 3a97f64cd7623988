package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is a GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewStore creates a new Store
func NewStore(db *gorm.DB) Store {
	return &GormStore{db: db}
}

func (s *GormStore) Companies() CompanyRepository {
	return &GormCompanyRepository{db: s.db}
}

func (s *GormStore) Projects() ProjectRepository {
	return &GormProjectRepository{db: s.db}
}

func (s *GormStore) Tasks() TaskRepository {
	return &GormTaskRepository{db: s.db}
}

func (s *GormStore) Users() UserRepository {
	return &GormUserRepository{db: s.db}
}

func (s *GormStore) Tokens() TokenRepository {
	return &GormTokenRepository{db: s.db}
}

// WithTransaction runs fn inside a database transaction. Nested calls reuse
// the outer transaction through gorm's savepoints.
func (s *GormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
