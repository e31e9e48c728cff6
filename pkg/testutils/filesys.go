package testutils

import (
	"github.com/mandelsoft/vfs/pkg/composefs"
	"github.com/mandelsoft/vfs/pkg/layerfs"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/readonlyfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
)

// TestFileSystem provides a temporary filesystem with the OS directory
// path mounted at path. For readonly=false changes to the mounted
// directory are kept in the temporary filesystem, the OS directory is
// never modified. The filesystem must be released with vfs.Cleanup.
func TestFileSystem(path string, readonly bool) (fs vfs.FileSystem, err error) {
	tmpfs, err := osfs.NewTempFileSystem()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			vfs.Cleanup(tmpfs)
		}
	}()

	ofs, err := overlay(tmpfs, path, readonly)
	if err != nil {
		return nil, err
	}
	cfs := composefs.New(tmpfs, "/tmp")
	if err = cfs.Mount(path, ofs); err != nil {
		return nil, err
	}
	return cfs, nil
}

func overlay(tmpfs vfs.FileSystem, path string, readonly bool) (vfs.FileSystem, error) {
	if err := tmpfs.MkdirAll(path, 0o700); err != nil {
		return nil, err
	}
	base, err := projectionfs.New(osfs.OsFs, path)
	if err != nil {
		return nil, err
	}
	if readonly {
		return readonlyfs.New(base), nil
	}
	changes, err := projectionfs.New(tmpfs, path)
	if err != nil {
		return nil, err
	}
	return layerfs.New(changes, base), nil
}
