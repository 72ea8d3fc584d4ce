package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFolderPath(t *testing.T) {
	assert.Equal(t, "/srv/media/alice/Live", FolderPath("alice", "Live"))
}

func TestVideoPath(t *testing.T) {
	assert.Equal(t, "/srv/media/alice/Live/movie.mp4", VideoPath("alice", "Live", "movie.mp4"))
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "movie_1500kbps.mp4", OutputName("movie.mp4", 1500))
	assert.Equal(t, "clip_800kbps.mp4", OutputName("clip.avi", 800))
	assert.Equal(t, "noext_2500kbps.mp4", OutputName("noext", 2500))
}

func TestOutputPathStaysInDirectory(t *testing.T) {
	assert.Equal(t, "/a/b/movie_1500kbps.mp4", OutputPath("/a/b/movie.mp4", 1500))
}

func TestOutputPathsDoNotCollide(t *testing.T) {
	a := OutputPath("/a/b/movie.mp4", 1500)
	b := OutputPath("/a/b/movie.mp4", 2500)
	c := OutputPath("/a/b/other.mp4", 1500)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}
