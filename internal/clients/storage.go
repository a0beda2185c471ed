package clients

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("file not found")

// StorageClient keeps generated export files on local disk and serves them under PublicPrefix.
type StorageClient struct {
	BaseDir      string
	PublicPrefix string // e.g. "/files"
	BaseURL      string // optional scheme+host used to build absolute URLs
}

func NewLocalStorage(baseDir, publicPrefix, baseURL string) (*StorageClient, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}
	if !strings.HasPrefix(publicPrefix, "/") {
		publicPrefix = "/" + publicPrefix
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir %q: %w", baseDir, err)
	}

	return &StorageClient{
		BaseDir:      baseDir,
		PublicPrefix: strings.TrimRight(publicPrefix, "/"),
		BaseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes data under a unique "<id>_<name>" file name and returns that name.
func (s *StorageClient) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	final := fmt.Sprintf("%s_%s", strings.ReplaceAll(uuid.NewString(), "-", ""), filepath.Base(fileName))
	path := filepath.Join(s.BaseDir, final)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	return final, nil
}

// Resolve maps a stored file name to its path on disk, rejecting anything outside BaseDir.
func (s *StorageClient) Resolve(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", ErrFileNotFound
	}
	path := filepath.Join(s.BaseDir, fileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}

// OriginalName strips the unique prefix added by Save.
func OriginalName(stored string) string {
	if idx := strings.IndexByte(stored, '_'); idx >= 0 {
		return stored[idx+1:]
	}
	return stored
}

func (s *StorageClient) GetURL(fileName string) string {
	return s.BaseURL + s.PublicPrefix + "/" + fileName
}

func (s *StorageClient) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path)
		}
		return nil
	})
}
