package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"streamhost/media-api/model"
	"streamhost/media-api/remote"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		model.Account{},
		model.Host{},
		model.Folder{},
		model.Video{},
		model.PlaylistEntry{},
		model.ConversionJob{},
	)
	require.NoError(t, err)

	return db
}

type fakeResponse struct {
	// Substring of the command line this response applies to
	when   string
	stdout string
	stderr string
}

// fakeExec records every command and answers Stat from a canned path map and
// Run from substring-matched responses
type fakeExec struct {
	mu        sync.Mutex
	cmds      []string
	stats     map[string]remote.Stat
	responses []fakeResponse
	stdout    string
	runErr    error
	statErr   error
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		stats: make(map[string]remote.Stat),
		// Checked command lines read the step marker back from stdout, an
		// unconfigured fake behaves like a host where everything works
		stdout: remote.MarkerStepOK + "\n",
	}
}

func (f *fakeExec) Run(_ context.Context, _ uint, command string) (*remote.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cmds = append(f.cmds, command)

	if f.runErr != nil {
		return nil, f.runErr
	}

	for _, r := range f.responses {
		if strings.Contains(command, r.when) {
			return &remote.Result{Stdout: r.stdout, Stderr: r.stderr}, nil
		}
	}

	return &remote.Result{Stdout: f.stdout}, nil
}

func (f *fakeExec) Stream(ctx context.Context, hostID uint, command string) (io.ReadCloser, error) {
	res, err := f.Run(ctx, hostID, command)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(res.Stdout)), nil
}

func (f *fakeExec) Stat(_ context.Context, _ uint, path string) (*remote.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statErr != nil {
		return nil, f.statErr
	}

	st := f.stats[path]
	return &st, nil
}

func (f *fakeExec) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.cmds))
	copy(out, f.cmds)
	return out
}

func (f *fakeExec) ranCommandContaining(sub string) bool {
	for _, c := range f.commands() {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

func seedAccount(t *testing.T, db *gorm.DB, id uint, login string, ceiling int) *model.Account {
	t.Helper()

	account := &model.Account{
		ID:         id,
		Email:      login + "@example.com",
		Login:      login,
		Verified:   true,
		MaxBitrate: ceiling,
	}
	require.NoError(t, db.Create(account).Error)

	return account
}

func seedHost(t *testing.T, db *gorm.DB, id uint, streams int, load float64) *model.Host {
	t.Helper()

	host := &model.Host{
		ID:            id,
		Address:       fmt.Sprintf("10.0.0.%d", id),
		SSHPort:       22,
		Active:        true,
		ActiveStreams: streams,
		CPULoad:       load,
	}
	require.NoError(t, db.Create(host).Error)

	return host
}

func init() {
	viper.Set("storage.root", "/srv/media")
	viper.Set("ffmpeg.path", "ffmpeg")
	viper.Set("ffmpeg.batch_workers", 2)
}
