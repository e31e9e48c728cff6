package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/readonlyfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

// DirectoryHandler serves the files of a directory read-only,
// for example the snapshot directory. Yaml files are served as
// application/yaml.
type DirectoryHandler struct {
	prefix string
	files  http.Handler
}

var _ http.Handler = (*DirectoryHandler)(nil)

// NewDirectoryHandlerFor serves the directory path of the given
// filesystem (default is the OS filesystem) under prefix.
func NewDirectoryHandlerFor(path, prefix string, fss ...vfs.FileSystem) (*DirectoryHandler, error) {
	fs, err := projectionfs.New(utils.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...), path)
	if err != nil {
		return nil, err
	}
	return NewDirectoryHandler(fs, prefix), nil
}

func NewDirectoryHandler(fs vfs.FileSystem, prefix string) *DirectoryHandler {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	return &DirectoryHandler{
		prefix: prefix,
		files:  http.StripPrefix(prefix, http.FileServerFS(vfs.AsIoFS(readonlyfs.New(fs)))),
	}
}

func (d *DirectoryHandler) RegisterHandler(srv *Server) {
	srv.Handle(d.prefix, d)
}

func (d *DirectoryHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Debug("{{method}} serving {{url}}", "method", req.Method, "url", req.URL.String())
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch filepath.Ext(req.URL.Path) {
	case ".yaml", ".yml":
		w.Header().Set("Content-Type", "application/yaml")
	}
	d.files.ServeHTTP(w, req)
}
