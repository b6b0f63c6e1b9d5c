// Package local provides a filesystem implementation of filestore.Store on
// top of afero, so tests can run against an in-memory filesystem.
package local

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/filestore"
	"github.com/spf13/afero"
)

// Store keeps objects as files below a root directory.
type Store struct {
	fs afero.Fs
}

var _ filestore.Store = (*Store)(nil)

// New returns a Store rooted at cfg.Dir on the OS filesystem, creating the
// directory when needed.
func New(cfg *filestore.Config) (*Store, error) {
	if err := afero.NewOsFs().MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "failed to create export dir", err)
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.Dir)), nil
}

// NewWithFs wraps an existing filesystem whose root is the store root.
func NewWithFs(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

func (s *Store) Ping(context.Context) error {
	if _, err := s.fs.Stat("/"); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "export dir unavailable", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// PutObject writes r to the file named by key, creating parent directories.
func (s *Store) PutObject(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "failed to create directory", err)
	}

	f, err := s.fs.Create(name)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "failed to create object", err)
	}
	if _, err := io.Copy(f, readerWithContext(ctx, r)); err != nil {
		f.Close()
		_ = s.fs.Remove(name)
		return nil, mapError(err, "failed to write object")
	}
	if err := f.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "failed to write object", err)
	}

	info, err := s.StatObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		info.ContentType = contentType
	}
	return info, nil
}

// ListObjects returns files (and, when not recursive, first-level
// directories) under opts.Prefix in key order.
func (s *Store) ListObjects(_ context.Context, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	results := []filestore.ObjectInfo{}
	seenDirs := map[string]bool{}

	err := afero.Walk(s.fs, "/", func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}

		rest := strings.TrimPrefix(key, opts.Prefix)
		if !opts.Recursive {
			if i := strings.Index(rest, "/"); i >= 0 {
				dir := opts.Prefix + rest[:i+1]
				if !seenDirs[dir] {
					seenDirs[dir] = true
					results = append(results, filestore.ObjectInfo{Key: dir, Size: -1, IsDir: true})
				}
				return nil
			}
		}
		results = append(results, fileInfo(key, fi))
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// GetObject opens the file named by key.
func (s *Store) GetObject(_ context.Context, key string) (filestore.Object, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		f.Close()
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}
	return &object{ReadCloser: f, info: fileInfo(key, fi)}, nil
}

// StatObject returns metadata for the file named by key.
func (s *Store) StatObject(_ context.Context, key string) (*filestore.ObjectInfo, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	fi, err := s.fs.Stat(name)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	if fi.IsDir() {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}
	info := fileInfo(key, fi)
	return &info, nil
}

// PresignGetURL is not available for files; callers stream through
// GetObject instead.
func (s *Store) PresignGetURL(context.Context, string, time.Duration) (string, error) {
	return "", errs.New(errs.ErrKindStorage, "presigned URLs are not supported by the local store")
}

// cleanKey rejects keys that would escape the root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", errs.InvalidConfig("invalid object key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errs.InvalidConfig("invalid object key %q", key)
	}
	return "/" + clean, nil
}

func fileInfo(key string, fi os.FileInfo) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  mime.TypeByExtension(path.Ext(key)),
		LastModified: fi.ModTime(),
	}
}

func mapError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	default:
		return errs.Wrap(errs.ErrKindStorage, msg, err)
	}
}

// readerWithContext stops copying once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return r.Read(p)
	})
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

type object struct {
	io.ReadCloser
	info filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return &o.info
}
