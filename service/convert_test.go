package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"streamhost/media-api/model"
	"streamhost/media-api/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedVideo(t *testing.T, db *gorm.DB, account *model.Account, folder *model.Folder) *model.Video {
	t.Helper()

	video := &model.Video{
		AccountID: account.ID,
		FolderID:  folder.ID,
		Name:      "Movie",
		FileName:  "movie.mp4",
		Duration:  120,
		Size:      1 << 20,
		Bitrate:   8000,
	}
	require.NoError(t, db.Create(video).Error)

	return video
}

func convertFixture(t *testing.T) (*ConvertService, *fakeExec, *model.Account, *model.Video, *model.Folder) {
	t.Helper()

	db := testDB(t)
	exec := newFakeExec()

	account := seedAccount(t, db, 7, "alice", 5000)
	seedHost(t, db, 1, 0, 0.1)

	folder := &model.Folder{
		AccountID: account.ID,
		Name:      "Live",
		HostID:    1,
	}
	require.NoError(t, db.Create(folder).Error)

	video := seedVideo(t, db, account, folder)

	return NewConvertService(db, exec, nil), exec, account, video, folder
}

func TestBuildTranscodeCommand(t *testing.T) {
	cmd := BuildTranscodeCommand("/a/b/movie.mp4", "/a/b/movie_1500kbps.mp4", &TargetSpec{
		Bitrate:    1500,
		Resolution: "1280x720",
	})

	assert.Contains(t, cmd, "-vf scale=1280:720")
	assert.Contains(t, cmd, "-b:v 1500k")
	assert.Contains(t, cmd, "-maxrate 1500k")
	assert.Contains(t, cmd, "-bufsize 3000k")
	assert.Contains(t, cmd, "'/a/b/movie.mp4'")
	assert.Contains(t, cmd, "'/a/b/movie_1500kbps.mp4'")
	assert.Contains(t, cmd, "echo "+remote.MarkerConversionSuccess)
	assert.Contains(t, cmd, "echo "+remote.MarkerConversionError)
}

func TestConvertRequestSourceMissing(t *testing.T) {
	s, _, account, video, _ := convertFixture(t)

	_, err := s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.Error(t, err)
	assert.Equal(t, ReasonSourceNotFound, ReasonOf(err))
}

func TestConvertRequestOutputExists(t *testing.T) {
	s, exec, account, video, _ := convertFixture(t)

	exec.stats["/srv/media/alice/Live/movie.mp4"] = remote.Stat{Exists: true}
	exec.stats["/srv/media/alice/Live/movie_1500kbps.mp4"] = remote.Stat{Exists: true}

	_, err := s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.Error(t, err)
	assert.Equal(t, ReasonConversionExists, ReasonOf(err))
}

func TestConvertRequestOverCeiling(t *testing.T) {
	s, _, account, video, _ := convertFixture(t)

	_, err := s.Request(context.Background(), account, video.ID, QualityRequest{
		Tier: "custom", Bitrate: 6000, Resolution: "1920x1080",
	})
	require.Error(t, err)
	assert.Equal(t, ReasonExceedsCeiling, ReasonOf(err))
}

func TestConvertRequestUnknownVideo(t *testing.T) {
	s, _, account, _, _ := convertFixture(t)

	_, err := s.Request(context.Background(), account, 9999, QualityRequest{Tier: "media"})
	require.Error(t, err)
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
}

func TestConvertRequestDispatchesAndRecords(t *testing.T) {
	s, exec, account, video, folder := convertFixture(t)

	exec.stats["/srv/media/alice/Live/movie.mp4"] = remote.Stat{Exists: true}
	exec.responses = append(exec.responses, fakeResponse{
		when:   "ffmpeg",
		stdout: remote.MarkerConversionSuccess + "\n",
	})

	accepted, err := s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.NoError(t, err)

	// The caller gets the accepted spec immediately, completion is async
	assert.Equal(t, fmt.Sprintf("%d_1500", video.ID), accepted.JobID)
	assert.Equal(t, 1500, accepted.Bitrate)
	assert.Equal(t, "1280x720", accepted.Resolution)

	assert.Eventually(t, func() bool {
		var job model.ConversionJob
		if err := s.DB.First(&job, "video_id = ?", video.ID).Error; err != nil {
			return false
		}
		return job.Status == model.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	// The derived copy is a new independent row, the original is untouched
	var derived model.Video
	require.NoError(t, s.DB.
		Where("folder_id = ? AND conversion_label IS NOT NULL", folder.ID).
		First(&derived).
		Error)

	assert.Equal(t, "movie_1500kbps.mp4", derived.FileName)
	assert.Equal(t, 1500, derived.Bitrate)
	require.NotNil(t, derived.ConversionLabel)
	assert.Equal(t, "media_1500kbps", *derived.ConversionLabel)

	var original model.Video
	require.NoError(t, s.DB.First(&original, video.ID).Error)
	assert.Nil(t, original.ConversionLabel)
	assert.Equal(t, "movie.mp4", original.FileName)
}

func TestConvertRequestDuplicateJob(t *testing.T) {
	s, exec, account, video, _ := convertFixture(t)

	exec.stats["/srv/media/alice/Live/movie.mp4"] = remote.Stat{Exists: true}
	exec.responses = append(exec.responses, fakeResponse{
		when:   "ffmpeg",
		stdout: remote.MarkerConversionSuccess + "\n",
	})

	_, err := s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.NoError(t, err)

	// Identical request while the first may still be running: the job row's
	// uniqueness makes this deterministic
	_, err = s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.Error(t, err)
	assert.Equal(t, ReasonConversionExists, ReasonOf(err))
}

func TestConvertFailureIsRecorded(t *testing.T) {
	s, exec, account, video, folder := convertFixture(t)

	exec.stats["/srv/media/alice/Live/movie.mp4"] = remote.Stat{Exists: true}
	exec.responses = append(exec.responses, fakeResponse{
		when:   "ffmpeg",
		stdout: remote.MarkerConversionError + "\n",
		stderr: "movie.mp4: Invalid data found when processing input",
	})

	_, err := s.Request(context.Background(), account, video.ID, QualityRequest{Tier: "media"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var job model.ConversionJob
		if err := s.DB.First(&job, "video_id = ?", video.ID).Error; err != nil {
			return false
		}
		return job.Status == model.JobFailed
	}, 2*time.Second, 10*time.Millisecond)

	// No derived row on failure
	var count int64
	require.NoError(t, s.DB.
		Model(model.Video{}).
		Where("folder_id = ? AND conversion_label IS NOT NULL", folder.ID).
		Count(&count).
		Error)
	assert.EqualValues(t, 0, count)

	// And the failure is visible through the status query
	status, err := s.Status(context.Background(), account, video.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
}

func TestStatusNotStarted(t *testing.T) {
	s, _, account, video, _ := convertFixture(t)

	status, err := s.Status(context.Background(), account, video.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, status.Status)
	assert.Equal(t, 0, status.Progress)
}

func TestStatusInProgress(t *testing.T) {
	s, _, account, video, _ := convertFixture(t)

	require.NoError(t, s.DB.Create(&model.ConversionJob{
		AccountID:     account.ID,
		VideoID:       video.ID,
		TargetBitrate: 1500,
		OutputName:    "movie_1500kbps.mp4",
		Status:        model.JobRunning,
	}).Error)

	status, err := s.Status(context.Background(), account, video.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, status.Status)
	assert.Equal(t, 50, status.Progress)
}

func TestStatusDoneReportsSize(t *testing.T) {
	s, _, account, video, folder := convertFixture(t)

	require.NoError(t, s.DB.Create(&model.ConversionJob{
		AccountID:     account.ID,
		VideoID:       video.ID,
		TargetBitrate: 1500,
		OutputName:    "movie_1500kbps.mp4",
		Status:        model.JobDone,
	}).Error)

	label := "media_1500kbps"
	require.NoError(t, s.DB.Create(&model.Video{
		AccountID:       account.ID,
		FolderID:        folder.ID,
		FileName:        "movie_1500kbps.mp4",
		Size:            4096,
		ConversionLabel: &label,
	}).Error)

	status, err := s.Status(context.Background(), account, video.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.EqualValues(t, 4096, status.Size)
}

func TestStatusProbeFallback(t *testing.T) {
	s, exec, account, _, folder := convertFixture(t)

	// A derived row that predates the job table: existence of the output
	// file is all there is to go on
	label := "alta_2500kbps"
	derived := &model.Video{
		AccountID:       account.ID,
		FolderID:        folder.ID,
		FileName:        "movie_2500kbps.mp4",
		ConversionLabel: &label,
	}
	require.NoError(t, s.DB.Create(derived).Error)

	status, err := s.Status(context.Background(), account, derived.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, status.Status)

	exec.stats["/srv/media/alice/Live/movie_2500kbps.mp4"] = remote.Stat{Exists: true, Size: 9000}

	status, err = s.Status(context.Background(), account, derived.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status.Status)
	assert.EqualValues(t, 9000, status.Size)
}

func TestDeleteConverted(t *testing.T) {
	s, exec, account, video, folder := convertFixture(t)

	label := "media_1500kbps"
	derived := &model.Video{
		AccountID:       account.ID,
		FolderID:        folder.ID,
		FileName:        "movie_1500kbps.mp4",
		Size:            4096,
		ConversionLabel: &label,
	}
	require.NoError(t, s.DB.Create(derived).Error)

	require.NoError(t, s.DeleteConverted(context.Background(), account, derived.ID))

	assert.True(t, exec.ranCommandContaining("rm -f '/srv/media/alice/Live/movie_1500kbps.mp4'"))

	var count int64
	require.NoError(t, s.DB.Model(model.Video{}).Where("id = ?", derived.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Originals are not deletable through this path
	err := s.DeleteConverted(context.Background(), account, video.ID)
	require.Error(t, err)
	assert.Equal(t, ReasonNotFound, ReasonOf(err))
}

func TestRequestBatchCollectsPerItemFailures(t *testing.T) {
	s, exec, account, video, folder := convertFixture(t)

	second := &model.Video{
		AccountID: account.ID,
		FolderID:  folder.ID,
		Name:      "Clip",
		FileName:  "clip.mp4",
	}
	require.NoError(t, s.DB.Create(second).Error)

	// Only the first video's source exists on the host
	exec.stats["/srv/media/alice/Live/movie.mp4"] = remote.Stat{Exists: true}
	exec.responses = append(exec.responses, fakeResponse{
		when:   "ffmpeg",
		stdout: remote.MarkerConversionSuccess + "\n",
	})

	results := s.RequestBatch(context.Background(), account, []uint{video.ID, second.ID, 9999}, QualityRequest{Tier: "media"})
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Accepted)
	assert.Empty(t, results[0].Error)

	assert.Nil(t, results[1].Accepted)
	assert.Equal(t, ReasonSourceNotFound, results[1].Reason)

	assert.Nil(t, results[2].Accepted)
	assert.Equal(t, ReasonNotFound, results[2].Reason)
}
