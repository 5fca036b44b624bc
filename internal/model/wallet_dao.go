package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = gorm.ErrRecordNotFound

// WalletsDao defines the interface for database operations on the wallets table.
type WalletsDao interface {
	Insert(ctx context.Context, data *Wallets) error
	FindOneByAddress(ctx context.Context, address string) (*Wallets, error)
	FindAll(ctx context.Context) ([]*Wallets, error)
	FindAuthorized(ctx context.Context) ([]*Wallets, error)
	SetAuthorized(ctx context.Context, address string, authorized bool) error
}

type walletsDao struct {
	db *gorm.DB
}

// NewWalletsDao creates a new instance of WalletsDao.
func NewWalletsDao(db *gorm.DB) WalletsDao {
	return &walletsDao{
		db: db,
	}
}

// Insert adds a new record to the wallets table.
func (d *walletsDao) Insert(ctx context.Context, data *Wallets) error {
	return d.db.WithContext(ctx).Create(data).Error
}

// FindOneByAddress retrieves a single wallet record by its address.
func (d *walletsDao) FindOneByAddress(ctx context.Context, address string) (*Wallets, error) {
	var resp Wallets
	err := d.db.WithContext(ctx).Where("address = ?", address).First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// FindAll retrieves all wallet records, oldest first.
func (d *walletsDao) FindAll(ctx context.Context) ([]*Wallets, error) {
	var wallets []*Wallets
	err := d.db.WithContext(ctx).Order("id").Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// FindAuthorized retrieves the wallets the user has already approved.
func (d *walletsDao) FindAuthorized(ctx context.Context) ([]*Wallets, error) {
	var wallets []*Wallets
	err := d.db.WithContext(ctx).Where("authorized = ?", true).Order("id").Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// SetAuthorized flips the authorization flag of one wallet.
func (d *walletsDao) SetAuthorized(ctx context.Context, address string, authorized bool) error {
	res := d.db.WithContext(ctx).Model(&Wallets{}).Where("address = ?", address).Update("authorized", authorized)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
