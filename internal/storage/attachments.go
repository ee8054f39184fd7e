// Package storage keeps task attachments on a filesystem that is also served
// publicly under /storage.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// MaxAttachmentSize is the largest accepted upload, 2048 KiB.
	MaxAttachmentSize int64 = 2048 * 1024

	attachmentDir = "attachments"
	publicPrefix  = "/storage/"
)

// ErrTooLarge is returned by Put when the content exceeds MaxAttachmentSize.
var ErrTooLarge = fmt.Errorf("attachment exceeds %d bytes", MaxAttachmentSize)

// AttachmentStore writes uploads under generated names so that client file
// names never reach the filesystem.
type AttachmentStore struct {
	fs      afero.Fs
	baseURL string
}

// NewAttachmentStore returns a store rooted at fs. baseURL is prepended to the
// public path when building download links; it may be empty for relative links.
func NewAttachmentStore(fs afero.Fs, baseURL string) *AttachmentStore {
	return &AttachmentStore{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewDiskStore roots the store at dir on the local disk.
func NewDiskStore(dir, baseURL string) (*AttachmentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %q", dir)
	}
	return NewAttachmentStore(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

// FS exposes the underlying filesystem for static serving.
func (s *AttachmentStore) FS() afero.Fs {
	return s.fs
}

// Put copies r into a new file named after originalName's extension and
// returns its relative path, e.g. "attachments/<uuid>.pdf". Nothing is left
// behind when the write fails or the content is too large.
func (s *AttachmentStore) Put(originalName string, r io.Reader) (string, error) {
	if err := s.fs.MkdirAll(fsPath(attachmentDir), 0o755); err != nil {
		return "", errors.Wrap(err, "create attachment dir")
	}

	rel := path.Join(attachmentDir, uuid.NewString()+safeExt(originalName))
	f, err := s.fs.Create(fsPath(rel))
	if err != nil {
		return "", errors.Wrap(err, "create attachment")
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxAttachmentSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		err = errors.Wrap(err, "write attachment")
	case closeErr != nil:
		err = errors.Wrap(closeErr, "close attachment")
	case n > MaxAttachmentSize:
		err = ErrTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(fsPath(rel))
		return "", err
	}
	return rel, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *AttachmentStore) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	err := s.fs.Remove(fsPath(rel))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove attachment %q", rel)
	}
	return nil
}

// Exists reports whether rel is stored.
func (s *AttachmentStore) Exists(rel string) bool {
	ok, err := afero.Exists(s.fs, fsPath(rel))
	return err == nil && ok
}

// URL is the public link of a stored file.
func (s *AttachmentStore) URL(rel string) string {
	return s.baseURL + publicPrefix + strings.TrimLeft(rel, "/")
}

// fsPath roots rel so that every afero backend resolves it the same way.
func fsPath(rel string) string {
	return "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

func safeExt(name string) string {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
