package model

type Folder struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint   `gorm:"uniqueIndex:idx_account_folder_name;not null" json:"-"`
	Name      string `gorm:"uniqueIndex:idx_account_folder_name;not null" json:"name"`

	// HostID is assigned on creation and never defaulted. A folder without a
	// host can't exist
	HostID uint `gorm:"not null" json:"host_id"`

	Quota int64 `json:"quota"`
	// UsedBytes is what metadata last recorded, not necessarily what the host
	// actually holds. FolderInfo reports both sides
	UsedBytes int64 `json:"used_bytes"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`

	Videos []Video `gorm:"foreignKey:FolderID" json:"-"`
}
