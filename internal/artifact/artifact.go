// Package artifact persists failure artifacts of a run, currently full-page
// screenshots, to S3 or a local directory.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kuitang/bloglist-e2e/internal/config"
	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/s3client"
)

const pngContentType = "image/png"

// Store saves a named artifact and returns where it ended up.
type Store interface {
	Put(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

// DirStore writes artifacts under Dir.
type DirStore struct {
	Dir string
}

func (s DirStore) Put(_ context.Context, name string, content []byte, _ string) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("artifact: create dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}

// S3Store uploads artifacts to a bucket.
type S3Store struct {
	Client *s3client.Client
}

func (s S3Store) Put(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	if err := s.Client.PutObject(ctx, name, content, contentType); err != nil {
		return "", err
	}
	return s.Client.ObjectURI(name), nil
}

// Open returns the store configured by cfg: S3 when a bucket is set, else a
// directory when one is set, else nil.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch {
	case cfg.ArtifactBucket != "":
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.ArtifactBucket,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, fmt.Errorf("artifact: %w", err)
		}
		return S3Store{Client: client}, nil
	case cfg.ArtifactDir != "":
		return DirStore{Dir: cfg.ArtifactDir}, nil
	default:
		return nil, nil
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// Key returns the object name of an artifact of scenario in run.
func Key(runID, scenario, ext string) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(scenario), "-"), "-")
	if slug == "" {
		slug = "scenario"
	}
	return runID + "/" + slug + "." + ext
}

// SaveScreenshot captures page and stores it under the run and scenario.
// A nil store is a no-op returning "".
func SaveScreenshot(ctx context.Context, store Store, page driver.Page, runID, scenario string) (string, error) {
	if store == nil {
		return "", nil
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("artifact: %w", err)
	}
	location, err := store.Put(ctx, Key(runID, scenario, "png"), png, pngContentType)
	if err != nil {
		return "", err
	}
	obs.From(ctx).Info("screenshot_saved", "pkg", "artifact", "location", location, "bytes", len(png))
	return location, nil
}
