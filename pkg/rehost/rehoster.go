// package rehost copies third-party images into owned object storage so
// records never depend on ephemeral CDN URLs.
package rehost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxImageBytes = 20 * 1024 * 1024

// objectPutter is the slice of the minio client we use; narrowed for tests.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicBaseURL is the public prefix objects are served from. Any image
	// URL already under this prefix is considered owned and left alone.
	PublicBaseURL string
}

type Rehoster struct {
	store  objectPutter
	bucket string
	public string
	http   *http.Client
}

func New(cfg Config) (*Rehoster, error) {
	r := &Rehoster{
		bucket: cfg.Bucket,
		public: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if cfg.Endpoint == "" {
		return r, nil
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("rehost: create storage client: %w", err)
	}
	r.store = client
	return r, nil
}

// Configured reports whether object storage is available.
func (r *Rehoster) Configured() bool {
	return r.store != nil && r.bucket != "" && r.public != ""
}

// Owned reports whether the URL already points at owned storage.
func (r *Rehoster) Owned(rawURL string) bool {
	return r.public != "" && strings.HasPrefix(rawURL, r.public)
}

// RehostURL downloads srcURL and re-uploads it under owned storage,
// returning the new public URL. URLs already under owned storage are
// returned unchanged without any network traffic.
func (r *Rehoster) RehostURL(ctx context.Context, srcURL string) (string, error) {
	if r.Owned(srcURL) {
		return srcURL, nil
	}
	if !r.Configured() {
		return "", fmt.Errorf("rehost: storage not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("rehost: status %d downloading %s", resp.StatusCode, srcURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return r.Upload(ctx, data, contentType)
}

// Upload stores raw image bytes under a uniquely timestamped key and
// returns the public URL.
func (r *Rehoster) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if !r.Configured() {
		return "", fmt.Errorf("rehost: storage not configured")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("rehost: empty image payload")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key := fmt.Sprintf("covers/%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], extFor(contentType))

	_, err := r.store.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("rehost: upload %s: %w", key, err)
	}

	slog.Debug("rehosted image", "key", key, "size", humanize.Bytes(uint64(len(data))), "content_type", contentType)
	return r.public + "/" + key, nil
}

func extFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
