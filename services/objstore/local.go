package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
)

// localStore writes objects under a directory, for development.
type localStore struct {
	dir     string
	baseURL string
}

var _ core.ObjectStore = (*localStore)(nil)

func NewLocalStore(conf core.StorageConfig) (core.ObjectStore, error) {
	if err := os.MkdirAll(conf.LocalDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &localStore{dir: conf.LocalDir, baseURL: strings.TrimRight(conf.LocalBaseURL, "/")}, nil
}

func (s *localStore) Upload(ctx context.Context, path string, r io.Reader, _ string) error {
	dst := filepath.Join(s.dir, filepath.FromSlash(path))
	if !strings.HasPrefix(dst, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return errors.Errorf("invalid object path %q", path)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return core.NewUpstreamError("creating object directory", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return core.NewUpstreamError("creating object "+path, err)
	}
	if _, err = io.Copy(f, readerWithContext{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return core.NewUpstreamError("writing object "+path, err)
	}
	if err = f.Close(); err != nil {
		return core.NewUpstreamError("closing object "+path, err)
	}
	return nil
}

func (s *localStore) PublicURL(path string) string {
	return s.baseURL + "/" + path
}

// readerWithContext stops reading once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (rc readerWithContext) Read(p []byte) (int, error) {
	if err := rc.ctx.Err(); err != nil {
		return 0, err
	}
	return rc.r.Read(p)
}
