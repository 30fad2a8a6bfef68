package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

// LocalStorage saves uploaded files to a directory on disk.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{dir: dir}, nil
}

// StoredFile describes a saved upload.
type StoredFile struct {
	Filename     string
	OriginalName string
	Path         string
	Size         int64
}

// Save writes the uploaded file under a randomized name so concurrent uploads
// with the same original name never collide.
func (s *LocalStorage) Save(c *gin.Context, file *multipart.FileHeader) (*StoredFile, error) {
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), GenerateCode(8), filepath.Ext(file.Filename))
	path := filepath.Join(s.dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, err
	}
	return &StoredFile{
		Filename:     name,
		OriginalName: filepath.Base(file.Filename),
		Path:         path,
		Size:         file.Size,
	}, nil
}

// Remove deletes a previously stored file.
func (s *LocalStorage) Remove(path string) error {
	return os.Remove(path)
}
