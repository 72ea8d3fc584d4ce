package service

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/viper"
)

// Remote hosts are Linux, so these are POSIX paths regardless of where the
// orchestrator runs

// FolderPath is the canonical remote directory of a folder
func FolderPath(login, folderName string) string {
	return path.Join(viper.GetString("storage.root"), login, folderName)
}

// BasePath is the account's base directory, the parent of all its folders
func BasePath(login string) string {
	return path.Join(viper.GetString("storage.root"), login)
}

// VideoPath is the canonical remote path of a stored video
func VideoPath(login, folderName, fileName string) string {
	return path.Join(FolderPath(login, folderName), fileName)
}

// OutputName derives the file name of a converted copy. Different (name,
// bitrate) pairs never collide within a folder, a collision with an existing
// file means the conversion already exists
func OutputName(fileName string, bitrateKbps int) string {
	ext := path.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + fmt.Sprintf("_%dkbps.mp4", bitrateKbps)
}

// OutputPath roots the converted copy in the same directory as the original
func OutputPath(originalPath string, bitrateKbps int) string {
	return path.Join(path.Dir(originalPath), OutputName(path.Base(originalPath), bitrateKbps))
}
