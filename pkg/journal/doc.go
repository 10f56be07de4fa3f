// Package journal records what a location sync did to the browser.
//
// A [Recorder] is a location.Observer that keeps the most recent entries
// for one session. When the session ends the server saves the entries to a
// [Store]; a reconnecting client with the same session ID continues the
// same journal.
//
// Two stores are provided:
//
//   - MemoryStore: for single-process deployments and tests
//   - S3Store: one JSON object per session in an S3 bucket
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := journal.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "locsync/")
package journal
