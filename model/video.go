package model

type Video struct {
	ID        uint `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint `gorm:"index;not null" json:"-"`
	FolderID  uint `gorm:"index;not null" json:"folder_id"`

	// Display name shown to the user, independent from the file name
	Name string `json:"name"`

	// FileName is the only path component stored. The full remote path is
	// computed from account login + folder name + file name on read, so a
	// folder rename never has to rewrite video rows
	FileName string `gorm:"not null" json:"file_name"`

	Duration   float64 `json:"duration"`
	Size       int64   `json:"size"`
	Bitrate    int     `json:"bitrate"`
	Resolution string  `json:"resolution"`
	Format     string  `json:"format"`

	// ConversionLabel is set only on rows representing a derived copy. The
	// original row is never mutated by a conversion
	ConversionLabel *string `gorm:"index" json:"conversion_label,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"`
}

// Converted reports whether this row is a derived copy
func (v *Video) Converted() bool {
	return v.ConversionLabel != nil
}
