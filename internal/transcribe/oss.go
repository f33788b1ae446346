package transcribe

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"recap/internal/proxy"
)

// ObjectStore holds audio files long enough for the recognition service to
// read them over a signed URL.
type ObjectStore interface {
	// Upload stores the local file and returns the object name plus a
	// time-limited URL the recognition service can fetch it from.
	Upload(ctx context.Context, localPath string) (object string, signedURL string, err error)
	// Delete removes an uploaded object. Best effort; callers log failures
	// rather than abort on them.
	Delete(ctx context.Context, object string) error
}

// OSSClient talks to an OSS-compatible object store using header-signed
// requests and query-signed download URLs.
type OSSClient struct {
	endpoint     string
	bucket       string
	accessKeyID  string
	accessSecret string
	signedTTL    time.Duration
	httpClient   *http.Client
	now          func() time.Time
}

// OSSOption configures an OSSClient.
type OSSOption func(*OSSClient)

// WithOSSHTTPClient overrides the HTTP client (for testing).
func WithOSSHTTPClient(client *http.Client) OSSOption {
	return func(c *OSSClient) { c.httpClient = client }
}

// WithOSSClock overrides the time source (for testing).
func WithOSSClock(now func() time.Time) OSSOption {
	return func(c *OSSClient) { c.now = now }
}

// NewOSSClient builds a client. endpoint is the region endpoint host, e.g.
// "oss-cn-hangzhou.aliyuncs.com"; a scheme prefix is accepted and stripped.
func NewOSSClient(endpoint, bucket, accessKeyID, accessSecret string, signedTTL time.Duration, opts ...OSSOption) *OSSClient {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimRight(endpoint, "/")
	if signedTTL <= 0 {
		signedTTL = 24 * time.Hour
	}
	c := &OSSClient{
		endpoint:     endpoint,
		bucket:       bucket,
		accessKeyID:  accessKeyID,
		accessSecret: accessSecret,
		signedTTL:    signedTTL,
		httpClient:   &http.Client{Timeout: 5 * time.Minute, Transport: proxy.DirectTransport()},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload PUTs the file under a collision-free object name and returns a
// signed GET URL valid for the configured TTL.
func (c *OSSClient) Upload(ctx context.Context, localPath string) (string, string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", "", fmt.Errorf("stat audio file: %w", err)
	}

	object := objectName(localPath, c.now())
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(object), file)
	if err != nil {
		return "", "", fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)
	c.signHeader(req, object, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("upload to object store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("upload to object store: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return object, c.SignedURL(object), nil
}

// Delete removes the object.
func (c *OSSClient) Delete(ctx context.Context, object string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(object), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.signHeader(req, object, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete object: http %d", resp.StatusCode)
	}
	return nil
}

// SignedURL builds a query-signed GET URL for an uploaded object.
func (c *OSSClient) SignedURL(object string) string {
	expires := strconv.FormatInt(c.now().Add(c.signedTTL).Unix(), 10)
	resource := "/" + c.bucket + "/" + object
	signature := c.sign(strings.Join([]string{http.MethodGet, "", "", expires, resource}, "\n"))
	query := url.Values{
		"OSSAccessKeyId": {c.accessKeyID},
		"Expires":        {expires},
		"Signature":      {signature},
	}
	return c.objectURL(object) + "?" + query.Encode()
}

func (c *OSSClient) objectURL(object string) string {
	return "https://" + c.bucket + "." + c.endpoint + "/" + object
}

// signHeader applies the header-based signature scheme used for PUT and
// DELETE requests.
func (c *OSSClient) signHeader(req *http.Request, object, contentType string) {
	date := c.now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", date)
	resource := "/" + c.bucket + "/" + object
	toSign := strings.Join([]string{req.Method, "", contentType, date, resource}, "\n")
	req.Header.Set("Authorization", "OSS "+c.accessKeyID+":"+c.sign(toSign))
}

func (c *OSSClient) sign(payload string) string {
	mac := hmac.New(sha1.New, []byte(c.accessSecret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// objectName produces a collision-free name carrying the original extension,
// so the recognition service can infer the container.
func objectName(localPath string, now time.Time) string {
	ext := filepath.Ext(localPath)
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("audio_%s_%d%s", entropy, now.Unix(), ext)
}
