// Package storage archives reports in S3-compatible object storage.
//
// It wraps the MinIO Go client behind the Client interface so tests can use the
// testify mock in core/storage/mocks. Archive builds on it: reports are stored as
// JSON under <prefix>/<kind>/ with a sortable timestamp and a uuid, and the oldest
// ones are pruned once more than Keep exist.
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	archive := storage.NewArchive(client, cfg, logger)
//	name, err := archive.Put(ctx, "drift", report)
package storage
