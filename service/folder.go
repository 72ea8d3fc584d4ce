package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"streamhost/media-api/model"
	"streamhost/media-api/remote"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FolderService keeps folder metadata and the remote directory tree in
// agreement. Every mutating operation is a bounded sequence of steps with an
// explicit compensating action on failure, there is no persisted in-progress
// state
type FolderService struct {
	DB   *gorm.DB
	Exec remote.Executor
}

func NewFolderService(db *gorm.DB, exec remote.Executor) *FolderService {
	return &FolderService{
		DB:   db,
		Exec: exec,
	}
}

// Folder names become path segments verbatim, so separators and dot names
// are rejected outright. "." and ".." would escape the account's subtree
func validFolderName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}

// runChecked runs a mutating command line with the step markers appended.
// The channel swallows exit statuses, so a missing or failed marker is the
// only way to see the command itself fail
func (s *FolderService) runChecked(ctx context.Context, hostID uint, cmd string) error {
	res, err := s.Exec.Run(ctx, hostID, remote.Checked(cmd))
	if err != nil {
		return err
	}

	if !remote.Succeeded(res) {
		return fmt.Errorf("remote command failed, %s", strings.TrimSpace(res.Stderr))
	}

	return nil
}

// Create inserts the folder row first and creates the remote directory
// second. If the remote side fails the row is deleted again, so a successful
// return always means the directory exists and a failure never leaves a row
// behind
func (s *FolderService) Create(ctx context.Context, account *model.Account, name string) (*model.Folder, error) {
	if !validFolderName(name) {
		return nil, E(ReasonInvalidName, "invalid folder name", nil)
	}

	var count int64
	err := s.DB.
		Model(model.Folder{}).
		Where("account_id = ? AND name = ?", account.ID, name).
		Count(&count).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate folder name, %w", err)
	}

	if count > 0 {
		return nil, E(ReasonDuplicateName, "a folder named "+name+" already exists", nil)
	}

	hostID, err := s.pickHost(account)
	if err != nil {
		return nil, err
	}

	folder := &model.Folder{
		AccountID: account.ID,
		Name:      name,
		HostID:    hostID,
		Quota:     account.StorageQuota,
		CreatedAt: time.Now().UnixMilli(),
	}

	// The unique (account_id, name) index is the authoritative duplicate
	// check, the count above only makes the common case fail early
	err = s.DB.Create(folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, E(ReasonDuplicateName, "a folder named "+name+" already exists", nil)
		}
		return nil, fmt.Errorf("failed to insert folder row, %w", err)
	}

	dir := remote.Quote(FolderPath(account.Login, name))
	login := remote.Quote(account.Login)

	cmd := fmt.Sprintf("mkdir -p %s && chown -R %s %s && chmod -R 755 %s", dir, login, dir, dir)

	if err := s.runChecked(ctx, hostID, cmd); err != nil {
		if delErr := s.DB.Delete(folder).Error; delErr != nil {
			zap.L().Error("Failed to roll back folder row after remote failure",
				zap.Uint("folderID", folder.ID),
				zap.Error(delErr),
			)
		}

		return nil, E(ReasonRemoteCreateFailed, "failed to create the folder on the media host", err)
	}

	return folder, nil
}

// pickHost returns the account's existing host if it already has folders,
// otherwise the least-loaded active host. There is no fallback host id
func (s *FolderService) pickHost(account *model.Account) (uint, error) {
	var existing model.Folder
	err := s.DB.
		Where("account_id = ?", account.ID).
		Order("id").
		First(&existing).
		Error
	if err == nil {
		return existing.HostID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up existing folders, %w", err)
	}

	var host model.Host
	err = s.DB.
		Where("active = ?", true).
		Order("active_streams asc, cpu_load asc").
		First(&host).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, E(ReasonNoHostAvailable, "no active media host available", nil)
		}
		return 0, fmt.Errorf("failed to select a media host, %w", err)
	}

	return host.ID, nil
}

// Rename performs the remote step first and only then touches metadata, so a
// remote failure leaves the folder unchanged from the caller's perspective.
// Video paths are computed from the folder name on read and follow for free
func (s *FolderService) Rename(ctx context.Context, account *model.Account, folderID uint, newName string) (*model.Folder, error) {
	if !validFolderName(newName) {
		return nil, E(ReasonInvalidName, "invalid folder name", nil)
	}

	folder, err := s.load(account, folderID)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.DB.
		Model(model.Folder{}).
		Where("account_id = ? AND name = ? AND id <> ?", account.ID, newName, folder.ID).
		Count(&count).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate folder name, %w", err)
	}

	if count > 0 {
		return nil, E(ReasonDuplicateName, "a folder named "+newName+" already exists", nil)
	}

	oldDir := FolderPath(account.Login, folder.Name)
	newDir := FolderPath(account.Login, newName)

	st, err := s.Exec.Stat(ctx, folder.HostID, oldDir)
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to check the folder on the media host", err)
	}

	var cmd string
	if st.Exists {
		cmd = fmt.Sprintf("mv %s %s && chmod -R 755 %s",
			remote.Quote(oldDir), remote.Quote(newDir), remote.Quote(newDir))
	} else {
		// The old directory is gone, heal the divergence by starting fresh
		// at the new path instead of failing the rename
		cmd = fmt.Sprintf("mkdir -p %s && chown -R %s %s && chmod -R 755 %s",
			remote.Quote(newDir), remote.Quote(account.Login), remote.Quote(newDir), remote.Quote(newDir))
	}

	if err := s.runChecked(ctx, folder.HostID, cmd); err != nil {
		return nil, E(ReasonRemoteRenameFailed, "failed to rename the folder on the media host", err)
	}

	err = s.DB.
		Model(folder).
		Update("name", newName).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, E(ReasonDuplicateName, "a folder named "+newName+" already exists", nil)
		}
		return nil, fmt.Errorf("failed to update folder row, %w", err)
	}

	folder.Name = newName
	return folder, nil
}

// Delete refuses while anything still references the folder. Metadata counts
// are checked before any remote action, and the remote scan is authoritative
// for emptiness even when metadata says empty
func (s *FolderService) Delete(ctx context.Context, account *model.Account, folderID uint) error {
	folder, err := s.load(account, folderID)
	if err != nil {
		return err
	}

	var videos int64
	err = s.DB.
		Model(model.Video{}).
		Where("folder_id = ?", folder.ID).
		Count(&videos).
		Error
	if err != nil {
		return fmt.Errorf("failed to count videos, %w", err)
	}

	dir := FolderPath(account.Login, folder.Name)

	// Folder names may legally contain LIKE wildcards, escape them so the
	// prefix match stays literal
	prefix := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(dir)

	var playlists int64
	err = s.DB.
		Model(model.PlaylistEntry{}).
		Where(`account_id = ? AND media_path LIKE ? ESCAPE '\'`, account.ID, prefix+"/%").
		Count(&playlists).
		Error
	if err != nil {
		return fmt.Errorf("failed to count playlist references, %w", err)
	}

	if videos > 0 || playlists > 0 {
		return E(ReasonFolderNotEmpty,
			fmt.Sprintf("folder is still referenced by %d videos and %d playlist entries", videos, playlists), nil)
	}

	st, err := s.Exec.Stat(ctx, folder.HostID, dir)
	if err != nil {
		return E(ReasonRemoteChannel, "failed to check the folder on the media host", err)
	}

	if st.Exists {
		files, err := s.remoteFileCount(ctx, folder.HostID, dir)
		if err != nil {
			return E(ReasonRemoteChannel, "failed to scan the folder on the media host", err)
		}

		if files > 0 {
			return E(ReasonFolderNotEmpty,
				fmt.Sprintf("the media host still holds %d files in this folder", files), nil)
		}

		if err := s.runChecked(ctx, folder.HostID, "rm -rf "+remote.Quote(dir)); err != nil {
			return E(ReasonRemoteChannel, "failed to remove the folder from the media host", err)
		}
	}
	// Directory already absent: metadata-only cleanup

	err = s.DB.Delete(folder).Error
	if err != nil {
		return fmt.Errorf("failed to delete folder row, %w", err)
	}

	return nil
}

// Sync is idempotent reconciliation of the remote side: directories exist,
// junk artifacts are gone, ownership and permissions are right. Metadata is
// never touched
func (s *FolderService) Sync(ctx context.Context, account *model.Account, folderID uint) error {
	folder, err := s.load(account, folderID)
	if err != nil {
		return err
	}

	base := remote.Quote(BasePath(account.Login))
	dir := remote.Quote(FolderPath(account.Login, folder.Name))
	login := remote.Quote(account.Login)

	steps := []string{
		fmt.Sprintf("mkdir -p %s %s", base, dir),
		fmt.Sprintf("find %s -type f -size 0 -delete", dir),
		fmt.Sprintf(`find %s -type f \( -name '*.part' -o -name '*.tmp' \) -delete`, dir),
		fmt.Sprintf("chown -R %s %s", login, base),
		fmt.Sprintf("chmod -R 755 %s", base),
	}

	if err := s.runChecked(ctx, folder.HostID, strings.Join(steps, " && ")); err != nil {
		return E(ReasonRemoteChannel, "failed to sync the folder with the media host", err)
	}

	return nil
}

// FolderInfo merges metadata counts with a remote scan. The two sides are
// allowed to disagree, reporting both is the point
type FolderInfo struct {
	Folder *model.Folder `json:"folder"`

	VideoCount int64 `json:"video_count"`
	MetaBytes  int64 `json:"meta_bytes"`

	RemoteExists bool  `json:"remote_exists"`
	RemoteFiles  int64 `json:"remote_files"`
	RemoteBytes  int64 `json:"remote_bytes"`
}

func (s *FolderService) Info(ctx context.Context, account *model.Account, folderID uint) (*FolderInfo, error) {
	folder, err := s.load(account, folderID)
	if err != nil {
		return nil, err
	}

	info := &FolderInfo{Folder: folder}

	err = s.DB.
		Model(model.Video{}).
		Where("folder_id = ?", folder.ID).
		Count(&info.VideoCount).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count videos, %w", err)
	}

	var sum struct{ Total int64 }
	err = s.DB.
		Model(model.Video{}).
		Where("folder_id = ?", folder.ID).
		Select("COALESCE(SUM(size), 0) AS total").
		Find(&sum).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum video sizes, %w", err)
	}
	info.MetaBytes = sum.Total

	dir := FolderPath(account.Login, folder.Name)

	st, err := s.Exec.Stat(ctx, folder.HostID, dir)
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to check the folder on the media host", err)
	}

	if !st.Exists {
		return info, nil
	}
	info.RemoteExists = true

	files, err := s.remoteFileCount(ctx, folder.HostID, dir)
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to scan the folder on the media host", err)
	}
	info.RemoteFiles = files

	res, err := s.Exec.Run(ctx, folder.HostID, fmt.Sprintf("du -sb %s | cut -f1", remote.Quote(dir)))
	if err != nil {
		return nil, E(ReasonRemoteChannel, "failed to measure the folder on the media host", err)
	}

	if bytes, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64); err == nil {
		info.RemoteBytes = bytes
	}

	return info, nil
}

// List returns the account's folders, oldest first
func (s *FolderService) List(account *model.Account) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.DB.
		Where("account_id = ?", account.ID).
		Order("id").
		Find(&folders).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list folders, %w", err)
	}

	return folders, nil
}

func (s *FolderService) load(account *model.Account, folderID uint) (*model.Folder, error) {
	var folder model.Folder
	err := s.DB.
		Where("account_id = ? AND id = ?", account.ID, folderID).
		First(&folder).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(ReasonNotFound, "folder not found. It either doesn't exist or you don't own it", nil)
		}
		return nil, fmt.Errorf("failed to look up folder, %w", err)
	}

	return &folder, nil
}

func (s *FolderService) remoteFileCount(ctx context.Context, hostID uint, dir string) (int64, error) {
	res, err := s.Exec.Run(ctx, hostID, fmt.Sprintf("find %s -type f | wc -l", remote.Quote(dir)))
	if err != nil {
		return 0, err
	}

	count, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected file count output %q", res.Stdout)
	}

	return count, nil
}
