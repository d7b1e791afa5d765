package snapshot

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

var _ Store = (*FileStore)(nil)

// FileConfig configures a FileStore
type FileConfig struct {
	Path string
}

// Validate validates the FileConfig
func (cfg *FileConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("Path", cfg.Path, vb)
	return vb.Build()
}

// FileStore keeps one snapshot in a single file
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to cfg.Path
func NewFileStore(cfg *FileConfig) (*FileStore, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &FileStore{path: filepath.Clean(cfg.Path)}, nil
}

// Path returns the snapshot file location
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the snapshot to a temp file next to the target, syncs it and
// renames it over the previous snapshot.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	b, err := Encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Persistence(err, "failed to create temp snapshot file")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Persistence(err, "failed to write snapshot")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Persistence(err, "failed to sync snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Persistence(err, "failed to close snapshot")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Persistence(err, "failed to replace snapshot")
	}
	committed = true

	slog.DebugContext(ctx, "snapshot saved",
		"path", s.path,
		"bytes", len(b),
		"sessions", len(snap.Game.Sessions),
	)
	return nil
}

// Load reads the snapshot file
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("no snapshot at %s", s.path)
		}
		return nil, errors.Persistence(err, "failed to read snapshot")
	}
	return Decode(b)
}
