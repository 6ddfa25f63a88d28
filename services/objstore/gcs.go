package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/gymhub/contentdesk/core"
)

type gcsStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

var _ core.ObjectStore = (*gcsStore)(nil)

// NewGCSStore opens a Cloud Storage client on conf.Bucket. The returned func closes the client.
func NewGCSStore(ctx context.Context, conf core.StorageConfig) (core.ObjectStore, func() error, error) {
	if conf.Bucket == "" {
		return nil, nil, fmt.Errorf("missing storage bucket")
	}
	opts := clientOptions(conf.Credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, core.NewUpstreamError("creating storage client", err)
	}
	return &gcsStore{client: client, bucket: conf.Bucket, cdnDomain: conf.CDNDomain}, client.Close, nil
}

func clientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *gcsStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return core.NewUpstreamError("writing object "+path, err)
	}
	if err := w.Close(); err != nil {
		return core.NewUpstreamError("closing object "+path, err)
	}
	return nil
}

func (s *gcsStore) PublicURL(path string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, path)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, path)
}
