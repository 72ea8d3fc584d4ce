// Package model defines database models
package model

type Account struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"unique;not null" json:"email"`

	// Login is the local part of the account's email. All remote directories
	// of this account live under it, so it has to be unique on its own
	Login    string `gorm:"uniqueIndex;not null" json:"login"`
	Verified bool   `gorm:"default:false" json:"-"`

	// MaxBitrate is the plan ceiling in kbps. No stored or derived video may
	// exceed it
	MaxBitrate   int   `json:"max_bitrate"`
	StorageQuota int64 `json:"storage_quota"`

	Folders []Folder `gorm:"foreignKey:AccountID" json:"-"`
}
