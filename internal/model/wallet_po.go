package model

import (
	"database/sql"
	"time"
)

// Wallets corresponds to the wallets table in the database.
type Wallets struct {
	Id                  int64          `db:"id" gorm:"primaryKey"`
	UserId              string         `db:"user_id"`
	Name                string         `db:"name"`
	Address             string         `db:"address" gorm:"uniqueIndex"`
	EncryptedPrivateKey string         `db:"encrypted_private_key"`
	PhoneNumber         sql.NullString `db:"phone_number"`
	Email               sql.NullString `db:"email"`
	ChainType           sql.NullString `db:"chain_type"`
	// Authorized marks accounts the user has approved for this client.
	Authorized bool      `db:"authorized"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (Wallets) TableName() string {
	return "wallets"
}
