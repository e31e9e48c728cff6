package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

const suffix = ".yaml"

// Store keeps snapshots as yaml files <path>/<document>.yaml.
type Store struct {
	lock sync.Mutex
	path string
	fs   vfs.FileSystem
}

func NewStore(path string, fss ...vfs.FileSystem) (*Store, error) {
	fs := utils.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...)

	err := fs.MkdirAll(path, 0o0700)
	if err != nil && !errors.Is(err, vfs.ErrExist) {
		return nil, err
	}
	return &Store{path: path, fs: fs}, nil
}

func (s *Store) Path(name string) string {
	return filepath.Join(s.path, name+suffix)
}

func (s *Store) Save(snap *Snapshot) error {
	if snap.Document == "" || strings.ContainsAny(snap.Document, "/\\") {
		return fmt.Errorf("invalid document name %q", snap.Document)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	return vfs.WriteFile(s.fs, s.Path(snap.Document), data, 0o600)
}

func (s *Store) Load(name string) (*Snapshot, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	path := s.Path(name)
	data, err := vfs.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	err = yaml.Unmarshal(data, &snap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if snap.Document != name {
		return nil, fmt.Errorf("corrupted store: %s does not contain snapshot for %q", path, name)
	}
	return &snap, nil
}

// List returns the names of all stored documents.
func (s *Store) List() ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	list, err := vfs.ReadDir(s.fs, s.path)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var result []string
	for _, e := range list {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			result = append(result, strings.TrimSuffix(e.Name(), suffix))
		}
	}
	slices.Sort(result)
	return result, nil
}

func (s *Store) Delete(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.fs.Remove(s.Path(name))
	if errors.Is(err, vfs.ErrNotExist) {
		return nil
	}
	return err
}
