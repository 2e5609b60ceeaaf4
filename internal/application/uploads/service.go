package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"homefind-backend/internal/pkg/validation"

	"github.com/google/uuid"
)

// ListingImagesBucket holds listing photos; listings store object paths inside it.
const ListingImagesBucket = "listing-images"

// SupabaseClient defines what we need from Supabase storage.
type SupabaseClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
}

// HTTPClient is a SupabaseClient backed by the storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	// ExpiresIn is how long a signed upload URL stays valid; zero means one hour.
	ExpiresIn time.Duration
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative, e.g. /object/upload/sign/...?token=
}

func (c *HTTPClient) check() error {
	switch {
	case c.BaseURL == "":
		return errors.New("supabase: SUPABASE_URL is not set")
	case c.SecretKey == "":
		return errors.New("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return nil
}

func (c *HTTPClient) expiresIn() int {
	if c.ExpiresIn <= 0 {
		return 3600
	}
	return int(c.ExpiresIn / time.Second)
}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	storage := strings.TrimRight(c.BaseURL, "/") + "/storage/v1"

	payload, err := json.Marshal(map[string]interface{}{"expiresIn": c.expiresIn(), "upsert": false})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/object/upload/sign/%s/%s", storage, bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("supabase sign %s: status %d: %s", bucket, resp.StatusCode, raw)
	}
	var data signedUploadResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	return data.resolve(storage)
}

// resolve picks whichever field the storage API filled in. Relative URLs are
// joined onto the storage root.
func (r signedUploadResponse) resolve(storage string) (string, error) {
	for _, u := range []string{r.SignedURL, r.SignedURLSnake} {
		if u != "" {
			return u, nil
		}
	}
	if r.URL == "" {
		return "", errors.New("supabase returned no signed URL")
	}
	if strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
		return r.URL, nil
	}
	return storage + "/" + strings.TrimLeft(r.URL, "/"), nil
}

// Service hands out signed upload URLs for listing images.
type Service struct {
	Client      SupabaseClient
	SupabaseURL string
	Now         func() time.Time
}

type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

var (
	imageExt  = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	nameClean = regexp.MustCompile(`[^a-z0-9._-]+`)
)

// PublicBase is the public URL prefix of the listing images bucket.
func PublicBase(supabaseURL string) string {
	if supabaseURL == "" {
		return ""
	}
	return strings.TrimRight(supabaseURL, "/") + "/storage/v1/object/public/" + ListingImagesBucket
}

// ListingImageURL returns a signed upload URL for an image of agentID's
// listings. The returned Path is what listings store in their images.
func (s *Service) ListingImageURL(ctx context.Context, agentID uuid.UUID, fileName string) (*UploadResult, error) {
	name := strings.ToLower(strings.TrimSpace(path.Base(fileName)))
	ext := path.Ext(name)
	if !imageExt[ext] {
		return nil, validation.Failf("Only .jpg, .jpeg, .png and .webp images can be uploaded")
	}
	name = strings.Trim(nameClean.ReplaceAllString(name, "-"), "-")

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	objectPath := fmt.Sprintf("%s/%d-%s", agentID, now().UnixMilli(), name)

	signedURL, err := s.Client.CreateSignedUploadURL(ctx, ListingImagesBucket, objectPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: PublicBase(s.SupabaseURL) + "/" + objectPath,
		Path:      objectPath,
	}, nil
}
