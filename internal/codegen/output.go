package codegen

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/filestore"
	"github.com/koustreak/datrigen/internal/logger"
)

// ContentType of uploaded modules.
const ContentType = "text/typescript; charset=utf-8"

// WriteDir writes every file of out into dir, creating it when missing.
// Existing files of the same name are replaced.
func WriteDir(ctx context.Context, dir string, out *Output) error {
	log := logger.FromContext(ctx).Component("codegen")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsError(err, "failed to create output directory")
	}

	for _, f := range out.Files {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.ErrKindTimeout, "write cancelled", err)
		}

		p := filepath.Join(dir, f.Name)
		if err := os.WriteFile(p, []byte(f.Content), 0o644); err != nil {
			return fsError(err, "failed to write "+p)
		}
		log.DebugWith("file written", map[string]interface{}{
			"path":  p,
			"bytes": len(f.Content),
		})
	}

	log.InfoWith("output written", map[string]interface{}{
		"dir":   dir,
		"files": len(out.Files),
	})
	return nil
}

func fsError(err error, msg string) error {
	if os.IsPermission(err) {
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// Published describes one uploaded module.
type Published struct {
	Key  string
	ETag string
	Size int64
}

// Publish uploads every file of out to bucket under prefix, creating the
// bucket first when needed. Files are uploaded in output order and the first
// failure stops the run.
func Publish(ctx context.Context, store filestore.Store, bucket, prefix string, out *Output) ([]Published, error) {
	log := logger.FromContext(ctx).Component("codegen")

	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}

	published := make([]Published, 0, len(out.Files))
	for _, f := range out.Files {
		key := ObjectKey(prefix, f.Name)
		info, err := store.PutObject(ctx, bucket, key, strings.NewReader(f.Content), int64(len(f.Content)), ContentType)
		if err != nil {
			log.ErrorWith("upload failed", err, map[string]interface{}{
				"bucket": bucket,
				"key":    key,
			})
			return published, err
		}
		published = append(published, Published{Key: key, ETag: info.ETag, Size: info.Size})
	}

	log.InfoWith("output published", map[string]interface{}{
		"bucket": bucket,
		"prefix": prefix,
		"files":  len(published),
	})
	return published, nil
}

// ObjectKey joins prefix and name with forward slashes, whatever the OS.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// IndexURL returns a presigned download URL for the published index module.
func IndexURL(ctx context.Context, store filestore.Store, bucket, prefix string, ttl time.Duration) (string, error) {
	return store.PresignGetURL(ctx, bucket, ObjectKey(prefix, IndexFile), ttl)
}
