// Package download writes exported artifacts to the user's save directory.
// It never fails loudly: every outcome is reported in the Result.
package download

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
)

// Request is the downloadFile message payload.
type Request struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Result is the downloadFile response.
type Result struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"downloadId,omitempty"`
}

// Service saves content references to SaveDir.
type Service struct {
	SaveDir string
	Blobs   *BlobStore
}

// NewService returns a downloader writing into saveDir.
func NewService(saveDir string, blobs *BlobStore) *Service {
	return &Service{SaveDir: saveDir, Blobs: blobs}
}

// DownloadFile saves the content behind rawURL as filename. A name that is
// already taken is uniquified ("name (1).md").
func (s *Service) DownloadFile(ctx context.Context, rawURL, filename string) Result {
	path, err := s.download(ctx, rawURL, filename)
	if err != nil {
		logging.Fail(logging.CategoryDownload, "download failed url=%s filename=%s: %v", rawURL, filename, err)
		return Result{Success: false}
	}
	id := uuid.NewString()
	logging.Success(logging.CategoryDownload, "download complete id=%s path=%s", id, path)
	return Result{Success: true, DownloadID: id}
}

func (s *Service) download(ctx context.Context, rawURL, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := sanitize(filename)
	if err != nil {
		return "", err
	}
	data, err := s.fetch(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.SaveDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create save directory")
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(s.SaveDir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "create file")
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", errors.Wrap(err, "write file")
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", errors.Wrap(err, "close file")
		}
		return path, nil
	}
}

func (s *Service) fetch(rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, BlobScheme) {
		if s.Blobs == nil {
			return nil, errors.New("no blob registry")
		}
		data, ok := s.Blobs.Resolve(rawURL)
		if !ok {
			return nil, errors.Errorf("unknown or revoked blob %s", rawURL)
		}
		return data, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	if u.Scheme != "file" {
		return nil, errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return data, nil
}

func sanitize(filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return "", errors.Errorf("invalid filename %q", filename)
	}
	return name, nil
}
