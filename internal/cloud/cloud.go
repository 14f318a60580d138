// Package cloud wraps the Cloudinary media host for wagrab.
//
// Fetched videos are uploaded here to produce shareable links, either as a
// secondary reference next to a direct chat delivery or as the only delivery
// path when the file exceeds the platform's inline media limit.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Constants for hosted upload configuration
const (
	// DefaultFolder is the Cloudinary folder uploads land in.
	DefaultFolder = "wa-downloads"
	// DefaultUploadTimeout bounds a single hosted upload.
	DefaultUploadTimeout = 120 * time.Second
	// maxCleanupResults caps how many assets one retention pass inspects.
	maxCleanupResults = 500
)

// Uploader is the hosted-link collaborator interface (for production and
// testing). Upload returns a publicly retrievable URL for the local file.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Opts holds configuration options for the Cloudinary uploader.
type Opts struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Option defines a configuration option for the Cloudinary uploader.
type Option func(*Opts)

// WithCloudName sets the Cloudinary cloud name.
func WithCloudName(name string) Option {
	return func(o *Opts) { o.CloudName = name }
}

// WithAPIKey sets the Cloudinary API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithAPISecret sets the Cloudinary API secret.
func WithAPISecret(secret string) Option {
	return func(o *Opts) { o.APISecret = secret }
}

// WithFolder sets the upload folder.
func WithFolder(folder string) Option {
	return func(o *Opts) { o.Folder = folder }
}

// CloudinaryUploader implements Uploader against the Cloudinary API.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader creates an uploader, falling back to
// CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY, and CLOUDINARY_API_SECRET from
// the environment.
func NewCloudinaryUploader(opts ...Option) (*CloudinaryUploader, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CloudName == "" {
		cfg.CloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("CLOUDINARY_API_KEY")
	}
	if cfg.APISecret == "" {
		cfg.APISecret = os.Getenv("CLOUDINARY_API_SECRET")
	}
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	slog.Debug("Cloudinary uploader config loaded",
		"cloud_name_set", cfg.CloudName != "",
		"api_key_set", cfg.APIKey != "",
		"api_secret_set", cfg.APISecret != "",
		"folder", cfg.Folder)

	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	return &CloudinaryUploader{cld: cld, folder: cfg.Folder}, nil
}

// Upload pushes a local video to Cloudinary and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("upload source not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultUploadTimeout)
	defer cancel()

	slog.Debug("CloudinaryUploader.Upload: uploading", "path", localPath, "folder", u.folder)
	resp, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		ResourceType:   "video",
		Folder:         u.folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(true),
	})
	if err != nil {
		slog.Error("CloudinaryUploader.Upload: upload failed", "error", err, "path", localPath)
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned no secure URL for %s", localPath)
	}

	slog.Info("CloudinaryUploader.Upload: upload complete", "public_id", resp.PublicID)
	return resp.SecureURL, nil
}

// CleanupOlderThan deletes hosted assets in the uploader's folder older than
// the given age. The retention sweep calls this periodically; it returns the
// number of assets removed.
func (u *CloudinaryUploader) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)

	res, err := u.cld.Admin.Assets(ctx, admin.AssetsParams{
		AssetType:    api.Video,
		DeliveryType: "upload",
		Prefix:       u.folder,
		MaxResults:   maxCleanupResults,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list hosted assets: %w", err)
	}

	removed := 0
	for _, asset := range res.Assets {
		if asset.CreatedAt.After(cutoff) {
			continue
		}
		slog.Debug("CloudinaryUploader.CleanupOlderThan: deleting asset", "public_id", asset.PublicID, "created_at", asset.CreatedAt)
		_, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{
			PublicID:     asset.PublicID,
			ResourceType: "video",
		})
		if err != nil {
			slog.Warn("CloudinaryUploader.CleanupOlderThan: delete failed", "error", err, "public_id", asset.PublicID)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("CloudinaryUploader.CleanupOlderThan: retention pass complete", "removed", removed)
	}
	return removed, nil
}
