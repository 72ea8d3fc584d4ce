package model

const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// ConversionJob is an append-only record of a dispatched transcode. The
// unique (video, bitrate) index makes the duplicate check a conditional
// insert instead of a read-then-write race
type ConversionJob struct {
	ID            uint `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID     uint `gorm:"index;not null" json:"-"`
	VideoID       uint `gorm:"uniqueIndex:idx_video_target_bitrate;not null" json:"video_id"`
	TargetBitrate int  `gorm:"uniqueIndex:idx_video_target_bitrate;not null" json:"target_bitrate"`

	Resolution string `json:"resolution"`
	OutputName string `json:"output_name"`

	// One of pending, running, done, failed. Advanced only by the goroutine
	// that dispatched the job
	Status string `gorm:"index;default:pending" json:"status"`
	// Technical detail of a failure, kept out of the status string
	Detail string `json:"-"`

	CreatedAt int64 `gorm:"not null" json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}
