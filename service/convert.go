package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamhost/media-api/model"
	"streamhost/media-api/remote"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConvertService validates a conversion request, dispatches the transcode on
// the video's media host and records the outcome. Dispatch is fire-and-forget
// from the caller's perspective, completion is only visible through Status
type ConvertService struct {
	DB   *gorm.DB
	Exec remote.Executor

	// Optional offsite copy of finished conversions, nil when disabled
	Archive *Archiver
}

func NewConvertService(db *gorm.DB, exec remote.Executor, archive *Archiver) *ConvertService {
	return &ConvertService{
		DB:      db,
		Exec:    exec,
		Archive: archive,
	}
}

// AcceptedSpec is what the caller gets back immediately. The job id is
// synthetic, formed from the video id and the target bitrate
type AcceptedSpec struct {
	JobID      string `json:"job_id"`
	Bitrate    int    `json:"bitrate"`
	Resolution string `json:"resolution"`
	Label      string `json:"label"`
}

// Request validates, records a pending job and dispatches the transcode
// without waiting for it. The unique (video, bitrate) job index closes the
// window between the remote existence check and the dispatch
func (s *ConvertService) Request(ctx context.Context, account *model.Account, videoID uint, req QualityRequest) (*AcceptedSpec, error) {
	video, folder, err := s.loadVideo(account, videoID)
	if err != nil {
		return nil, err
	}

	spec, err := ResolveRequest(account.MaxBitrate, req)
	if err != nil {
		return nil, err
	}

	srcPath := VideoPath(account.Login, folder.Name, video.FileName)
	outPath := OutputPath(srcPath, spec.Bitrate)
	outName := OutputName(video.FileName, spec.Bitrate)

	st, err := s.Exec.Stat(ctx, folder.HostID, srcPath)
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to check the source file on the media host", err)
	}

	if !st.Exists {
		return nil, E(ReasonSourceNotFound, "the source file is missing from the media host", nil)
	}

	st, err = s.Exec.Stat(ctx, folder.HostID, outPath)
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to check the output path on the media host", err)
	}

	if st.Exists {
		return nil, E(ReasonConversionExists, "a conversion with this bitrate already exists", nil)
	}

	job := &model.ConversionJob{
		AccountID:     account.ID,
		VideoID:       video.ID,
		TargetBitrate: spec.Bitrate,
		Resolution:    spec.Resolution,
		OutputName:    outName,
		Status:        model.JobPending,
		CreatedAt:     time.Now().UnixMilli(),
	}

	err = s.DB.Create(job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, E(ReasonConversionExists, "a conversion with this bitrate was already requested", nil)
		}
		return nil, fmt.Errorf("failed to record conversion job, %w", err)
	}

	cmd := BuildTranscodeCommand(srcPath, outPath, spec)

	go s.run(job, account, folder, video, spec, cmd, outPath)

	return &AcceptedSpec{
		JobID:      fmt.Sprintf("%d_%d", video.ID, spec.Bitrate),
		Bitrate:    spec.Bitrate,
		Resolution: spec.Resolution,
		Label:      spec.Label,
	}, nil
}

// BuildTranscodeCommand assembles the single remote command line: scale to
// the target resolution, encode at the target bitrate with a 2x buffer, and
// echo a marker the dispatcher can pattern-match on
func BuildTranscodeCommand(srcPath, outPath string, spec *TargetSpec) string {
	scale := strings.Replace(spec.Resolution, "x", ":", 1)

	return fmt.Sprintf(
		"%s -y -i %s -vf scale=%s -c:v libx264 -b:v %dk -maxrate %dk -bufsize %dk -c:a aac -b:a 128k -loglevel error %s && echo %s || echo %s",
		viper.GetString("ffmpeg.path"),
		remote.Quote(srcPath),
		scale,
		spec.Bitrate,
		spec.Bitrate,
		spec.Bitrate*2,
		remote.Quote(outPath),
		remote.MarkerConversionSuccess,
		remote.MarkerConversionError,
	)
}

// run is the dispatched side of a conversion. The caller is long gone, so
// everything here ends in either a job-row update or a log line
func (s *ConvertService) run(job *model.ConversionJob, account *model.Account, folder *model.Folder, video *model.Video, spec *TargetSpec, cmd, outPath string) {
	ctx := context.Background()

	s.mark(job, model.JobRunning, "")

	res, err := s.Exec.Run(ctx, folder.HostID, cmd)
	if err != nil {
		zap.L().Error("Conversion dispatch failed",
			zap.Uint("videoID", video.ID),
			zap.Int("bitrate", spec.Bitrate),
			zap.Error(err),
		)

		s.mark(job, model.JobFailed, err.Error())
		return
	}

	if !strings.Contains(res.Stdout, remote.MarkerConversionSuccess) {
		zap.L().Warn("Conversion reported an error",
			zap.Uint("videoID", video.ID),
			zap.Int("bitrate", spec.Bitrate),
			zap.String("stderr", tail(res.Stderr, 500)),
		)

		s.mark(job, model.JobFailed, tail(res.Stderr, 500))
		return
	}

	label := fmt.Sprintf("%s_%dkbps", spec.Label, spec.Bitrate)

	derived := &model.Video{
		AccountID:       account.ID,
		FolderID:        folder.ID,
		Name:            fmt.Sprintf("%s (%s)", video.Name, spec.Label),
		FileName:        job.OutputName,
		Duration:        video.Duration,
		Bitrate:         spec.Bitrate,
		Resolution:      spec.Resolution,
		Format:          "mp4",
		ConversionLabel: &label,
		CreatedAt:       time.Now().UnixMilli(),
	}

	err = s.DB.Create(derived).Error
	if err != nil {
		// The caller already got its response, nothing to surface
		zap.L().Error("Failed to insert converted video row",
			zap.Uint("videoID", video.ID),
			zap.Int("bitrate", spec.Bitrate),
			zap.Error(err),
		)
	} else {
		s.backfillSize(ctx, folder, derived, outPath)
	}

	s.mark(job, model.JobDone, "")

	if s.Archive != nil {
		key := fmt.Sprintf("%s/%s/%s", account.Login, folder.Name, job.OutputName)
		if err := s.Archive.Store(ctx, folder.HostID, outPath, key); err != nil {
			zap.L().Error("Failed to archive converted video",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// The converted row is inserted with a cleared size and backfilled from a
// follow-up stat once the file is on disk
func (s *ConvertService) backfillSize(ctx context.Context, folder *model.Folder, derived *model.Video, outPath string) {
	st, err := s.Exec.Stat(ctx, folder.HostID, outPath)
	if err != nil || !st.Exists {
		zap.L().Warn("Could not stat converted output for size backfill",
			zap.String("path", outPath),
			zap.Error(err),
		)
		return
	}

	err = s.DB.
		Model(derived).
		Update("size", st.Size).
		Error
	if err != nil {
		zap.L().Error("Failed to backfill converted video size", zap.Error(err))
		return
	}

	err = s.DB.
		Model(model.Folder{}).
		Where("id = ?", folder.ID).
		Update("used_bytes", gorm.Expr("used_bytes + ?", st.Size)).
		Error
	if err != nil {
		zap.L().Error("Failed to bump folder used bytes", zap.Error(err))
	}
}

func (s *ConvertService) mark(job *model.ConversionJob, status, detail string) {
	err := s.DB.
		Model(job).
		Updates(map[string]any{
			"status":     status,
			"detail":     detail,
			"updated_at": time.Now().UnixMilli(),
		}).
		Error
	if err != nil {
		zap.L().Error("Failed to update conversion job status",
			zap.Uint("jobID", job.ID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// DeleteConverted removes a derived copy from both sides, remote file first.
// Originals are not deletable through this path
func (s *ConvertService) DeleteConverted(ctx context.Context, account *model.Account, videoID uint) error {
	video, folder, err := s.loadVideo(account, videoID)
	if err != nil {
		return err
	}

	if !video.Converted() {
		return E(ReasonNotFound, "video is not a converted copy", nil)
	}

	p := VideoPath(account.Login, folder.Name, video.FileName)

	_, err = s.Exec.Run(ctx, folder.HostID, "rm -f "+remote.Quote(p))
	if err != nil {
		return E(ReasonRemoteChannel, "failed to remove the file from the media host", err)
	}

	err = s.DB.Delete(video).Error
	if err != nil {
		return fmt.Errorf("failed to delete video row, %w", err)
	}

	err = s.DB.
		Model(model.Folder{}).
		Where("id = ?", folder.ID).
		Update("used_bytes", gorm.Expr("used_bytes - ?", video.Size)).
		Error
	if err != nil {
		zap.L().Error("Failed to shrink folder used bytes", zap.Error(err))
	}

	return nil
}

func (s *ConvertService) loadVideo(account *model.Account, videoID uint) (*model.Video, *model.Folder, error) {
	var video model.Video
	err := s.DB.
		Where("account_id = ? AND id = ?", account.ID, videoID).
		First(&video).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, E(ReasonNotFound, "video not found. It either doesn't exist or you don't own it", nil)
		}
		return nil, nil, fmt.Errorf("failed to look up video, %w", err)
	}

	var folder model.Folder
	err = s.DB.
		Where("id = ?", video.FolderID).
		First(&folder).
		Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up parent folder, %w", err)
	}

	return &video, &folder, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
