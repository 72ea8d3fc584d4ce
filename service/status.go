package service

import (
	"context"
	"errors"
	"fmt"

	"streamhost/media-api/model"

	"gorm.io/gorm"
)

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ConversionStatus is the polled view of a dispatched conversion. Progress is
// a placeholder, not a measurement: 50 while running, 100 when done
type ConversionStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Size     int64  `json:"size"`
}

// StatusSource answers "how far along is the conversion of this video". Kept
// as an interface so the job-table implementation and the legacy existence
// probe are interchangeable to callers
type StatusSource interface {
	Status(ctx context.Context, account *model.Account, videoID uint) (*ConversionStatus, error)
}

// Status reads the job record when one exists. Rows that predate the job
// table fall back to inferring state from the output file's existence, where
// a failed conversion is indistinguishable from a running one
func (s *ConvertService) Status(ctx context.Context, account *model.Account, videoID uint) (*ConversionStatus, error) {
	var job model.ConversionJob
	err := s.DB.
		Where("account_id = ? AND video_id = ?", account.ID, videoID).
		Order("id desc").
		First(&job).
		Error
	if err == nil {
		return s.statusFromJob(ctx, account, &job)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up conversion job, %w", err)
	}

	return s.statusFromProbe(ctx, account, videoID)
}

func (s *ConvertService) statusFromJob(ctx context.Context, account *model.Account, job *model.ConversionJob) (*ConversionStatus, error) {
	switch job.Status {
	case model.JobPending, model.JobRunning:
		return &ConversionStatus{Status: StatusInProgress, Progress: 50}, nil
	case model.JobFailed:
		return &ConversionStatus{Status: StatusFailed}, nil
	}

	st := &ConversionStatus{Status: StatusDone, Progress: 100}

	var video model.Video
	err := s.DB.
		Where("account_id = ? AND file_name = ? AND conversion_label IS NOT NULL", account.ID, job.OutputName).
		Order("id desc").
		First(&video).
		Error
	if err == nil {
		st.Size = video.Size
	}

	return st, nil
}

func (s *ConvertService) statusFromProbe(ctx context.Context, account *model.Account, videoID uint) (*ConversionStatus, error) {
	var derived model.Video
	err := s.DB.
		Where("account_id = ? AND conversion_label IS NOT NULL AND id = ?", account.ID, videoID).
		Order("id desc").
		First(&derived).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ConversionStatus{Status: StatusNotStarted}, nil
		}
		return nil, fmt.Errorf("failed to look up converted video, %w", err)
	}

	var folder model.Folder
	err = s.DB.
		Where("id = ?", derived.FolderID).
		First(&folder).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up parent folder, %w", err)
	}

	st, err := s.Exec.Stat(ctx, folder.HostID, VideoPath(account.Login, folder.Name, derived.FileName))
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to check the converted file on the media host", err)
	}

	if st.Exists {
		return &ConversionStatus{Status: StatusDone, Progress: 100, Size: st.Size}, nil
	}

	return &ConversionStatus{Status: StatusInProgress, Progress: 50}, nil
}
