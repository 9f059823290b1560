package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const singletonID = 1

// TokenRepository defines decoupled operations for credential persistence.
type TokenRepository interface {
	Get(ctx context.Context) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Delete(ctx context.Context) error
}

// ProfileRepository stores the profile of the logged-in user.
type ProfileRepository interface {
	Get(ctx context.Context) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	Delete(ctx context.Context) error
}

// ProductRepository defines decoupled operations for the catalogue cache.
type ProductRepository interface {
	Put(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id int) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	SearchByName(ctx context.Context, nameSubstr string) ([]Product, error)
	Clear(ctx context.Context) error
}

// gormTokenRepo is a GORM-backed implementation of TokenRepository.
type gormTokenRepo struct{ db *gorm.DB }

// gormProfileRepo is a GORM-backed implementation of ProfileRepository.
type gormProfileRepo struct{ db *gorm.DB }

// gormProductRepo is a GORM-backed implementation of ProductRepository.
type gormProductRepo struct{ db *gorm.DB }

// NewTokenRepository creates a TokenRepository. Accepts *gorm.DB to avoid global access.
func NewTokenRepository(db *gorm.DB) TokenRepository { return &gormTokenRepo{db: db} }

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(db *gorm.DB) ProfileRepository { return &gormProfileRepo{db: db} }

// NewProductRepository creates a ProductRepository.
func NewProductRepository(db *gorm.DB) ProductRepository { return &gormProductRepo{db: db} }

var errNotInitialized = fmt.Errorf("repository not initialized")

func (r *gormTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var token Token
	err := r.db.WithContext(ctx).First(&token, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *gormTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.db == nil {
		return errNotInitialized
	}
	token.ID = singletonID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "access_expires_at", "refresh_expires_at",
		}),
	}).Create(token).Error
}

func (r *gormTokenRepo) Delete(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Delete(&Token{}, singletonID).Error
}

func (r *gormProfileRepo) Get(ctx context.Context) (*Profile, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var p Profile
	err := r.db.WithContext(ctx).First(&p, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProfileRepo) Upsert(ctx context.Context, p *Profile) error {
	if r.db == nil {
		return errNotInitialized
	}
	p.ID = singletonID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error
}

func (r *gormProfileRepo) Delete(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Delete(&Profile{}, singletonID).Error
}

func (r *gormProductRepo) Put(ctx context.Context, p Product) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error
}

func (r *gormProductRepo) GetByID(ctx context.Context, id int) (*Product, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var p Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProductRepo) List(ctx context.Context) ([]Product, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var products []Product
	if err := r.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *gormProductRepo) SearchByName(ctx context.Context, nameSubstr string) ([]Product, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var products []Product
	if err := r.db.WithContext(ctx).Where("name LIKE ?", "%"+nameSubstr+"%").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *gormProductRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Product{}).Error
}
