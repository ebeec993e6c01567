package utils

import (
	"io/fs"
	"os"
	"time"

	"github.com/cockroachdb/errors"
)

// Storage is a read-only file store that may need time before it can
// serve reads.
type Storage interface {
	Ready() bool
	FileSize(name string) (int64, error)
	ReadFile(name string) ([]byte, error)
	Close() error
}

type fsStorage struct {
	fsys   fs.FS
	ready  func() bool
	closed bool
}

// OpenFileStorage opens a storage rooted at dir. It becomes ready once dir
// exists and is a directory.
func OpenFileStorage(dir string) (Storage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is empty")
	}
	return &fsStorage{
		fsys: os.DirFS(dir),
		ready: func() bool {
			info, err := os.Stat(dir)
			return err == nil && info.IsDir()
		},
	}, nil
}

// NewFSStorage wraps fsys, which is always ready.
func NewFSStorage(fsys fs.FS) Storage {
	return &fsStorage{fsys: fsys}
}

func (s *fsStorage) Ready() bool {
	if s.closed {
		return false
	}
	return s.ready == nil || s.ready()
}

func (s *fsStorage) FileSize(name string) (int64, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", name)
	}
	return info.Size(), nil
}

func (s *fsStorage) ReadFile(name string) ([]byte, error) {
	if s.closed {
		return nil, fs.ErrClosed
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

func (s *fsStorage) Close() error {
	s.closed = true
	return nil
}

// WaitReady polls st every millisecond until it reports ready.
func WaitReady(st Storage, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !st.Ready() {
		if time.Now().After(deadline) {
			return errors.Newf("storage not ready after %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// ReadStorageFile reads name once st is ready. Empty files are an error.
func ReadStorageFile(st Storage, name string) ([]byte, error) {
	if err := WaitReady(st, StorageReadyTimeout); err != nil {
		return nil, err
	}
	size, err := st.FileSize(name)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, errors.Newf("%s is empty", name)
	}
	return st.ReadFile(name)
}
