package service

import (
	"context"

	"streamhost/media-api/model"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// BatchResult is the per-item outcome of a batch request. Failures are
// collected, not fatal to the rest of the batch
type BatchResult struct {
	VideoID  uint          `json:"video_id"`
	Accepted *AcceptedSpec `json:"accepted,omitempty"`
	Error    string        `json:"error,omitempty"`
	Reason   Reason        `json:"reason,omitempty"`
}

// RequestBatch fans the same quality request out over several videos with
// bounded parallelism. Each item goes through the exact single-item contract
func (s *ConvertService) RequestBatch(ctx context.Context, account *model.Account, videoIDs []uint, req QualityRequest) []BatchResult {
	results := make([]BatchResult, len(videoIDs))

	g, ctx := errgroup.WithContext(ctx)

	limit := viper.GetInt("ffmpeg.batch_workers")
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, id := range videoIDs {
		g.Go(func() error {
			results[i].VideoID = id

			accepted, err := s.Request(ctx, account, id, req)
			if err != nil {
				results[i].Error = err.Error()
				results[i].Reason = ReasonOf(err)
				return nil
			}

			results[i].Accepted = accepted
			return nil
		})
	}

	g.Wait()
	return results
}
