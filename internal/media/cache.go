package media

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
	"github.com/yungbote/storycut-backend/internal/platform/visionai"
)

// ResourceCache readies media for analysis and hands out upload handles.
// Preparation is idempotent per locator; concurrent callers for the same
// locator share one in-flight preparation.
type ResourceCache interface {
	Prepare(ctx context.Context, locator, mimeType string) (visionai.Handle, error)
}

type resourceCache struct {
	log    *logger.Logger
	gcs    *storage.Client
	vision visionai.Client

	mu      sync.Mutex
	entries map[string]*prepEntry
}

type prepEntry struct {
	done   chan struct{}
	handle visionai.Handle
	err    error
}

// NewResourceCache builds a cache scoped to one batch. The orchestrator owns
// its lifecycle; nothing here is process-global.
func NewResourceCache(baseLog *logger.Logger, gcs *storage.Client, vision visionai.Client) ResourceCache {
	return &resourceCache{
		log:     baseLog.With("service", "ResourceCache"),
		gcs:     gcs,
		vision:  vision,
		entries: map[string]*prepEntry{},
	}
}

func (c *resourceCache) Prepare(ctx context.Context, locator, mimeType string) (visionai.Handle, error) {
	c.mu.Lock()
	entry, ok := c.entries[locator]
	if !ok {
		entry = &prepEntry{done: make(chan struct{})}
		c.entries[locator] = entry
		c.mu.Unlock()

		entry.handle, entry.err = c.prepare(ctx, locator, mimeType)
		close(entry.done)
		return entry.handle, entry.err
	}
	c.mu.Unlock()

	select {
	case <-entry.done:
		return entry.handle, entry.err
	case <-ctx.Done():
		return visionai.Handle{}, ctx.Err()
	}
}

func (c *resourceCache) prepare(ctx context.Context, locator, mimeType string) (visionai.Handle, error) {
	bucket, object, err := splitLocator(locator)
	if err != nil {
		return visionai.Handle{}, &apperr.PreparationError{Locator: locator, Err: err}
	}

	reader, err := c.gcs.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return visionai.Handle{}, &apperr.PreparationError{Locator: locator, Err: fmt.Errorf("open object: %w", err)}
	}
	defer reader.Close()

	if mimeType == "" {
		mimeType = reader.Attrs.ContentType
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	handle, err := c.vision.Upload(ctx, object, mimeType, reader, reader.Attrs.Size)
	if err != nil {
		return visionai.Handle{}, &apperr.PreparationError{Locator: locator, Err: fmt.Errorf("upload for analysis: %w", err)}
	}

	c.log.Debug("media prepared", "locator", locator, "handle", handle.Name)
	return handle, nil
}

func splitLocator(locator string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(locator, "gs://")
	if trimmed == locator {
		return "", "", fmt.Errorf("locator %q is not a gs:// URI", locator)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("locator %q missing bucket or object", locator)
	}
	return parts[0], parts[1], nil
}
