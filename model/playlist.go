package model

// PlaylistEntry belongs to the playlist subsystem. This core only counts
// entries whose stored path references a folder about to be deleted
type PlaylistEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint   `gorm:"index;not null" json:"-"`
	MediaPath string `gorm:"index;not null" json:"media_path"`
}
