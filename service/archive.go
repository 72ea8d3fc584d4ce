package service

import (
	"context"
	"fmt"
	"time"

	"streamhost/media-api/cloudflare"
	"streamhost/media-api/remote"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Archiver copies finished conversions into the R2 bucket. The host can't
// reach the bucket itself, so the file is pulled over the command channel and
// streamed up from here. Strictly best-effort, a failed archive never affects
// conversion status
type Archiver struct {
	R2   *cloudflare.R2Client
	Exec remote.Executor
}

func NewArchiver(r2 *cloudflare.R2Client, exec remote.Executor) *Archiver {
	return &Archiver{
		R2:   r2,
		Exec: exec,
	}
}

func (a *Archiver) Store(ctx context.Context, hostID uint, remotePath, key string) error {
	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(5*time.Minute))
	defer cancel()

	// The file is streamed straight from the cat pipe into the uploader,
	// it is never held in memory whole
	body, err := a.Exec.Stream(ctx, hostID, "cat "+remote.Quote(remotePath))
	if err != nil {
		return fmt.Errorf("failed to pull file from host %d, %w", hostID, err)
	}
	defer body.Close()

	uploader := manager.NewUploader(a.R2.C)

	out, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      a.R2.Bucket,
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive object, %w", err)
	}

	zap.L().Debug("Archived converted video",
		zap.String("key", key),
		zap.String("location", out.Location),
	)

	return nil
}
