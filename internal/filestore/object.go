package filestore

import "time"

// ObjectInfo is what the store reports after an upload or a stat.
// Publish records Key, ETag and Size per generated module.
type ObjectInfo struct {
	Key          string // e.g. "bindings/v2/public.ts"
	Size         int64  // -1 when the backend did not say
	ContentType  string
	ETag         string
	LastModified time.Time
}
