// Package howto provides the core service for community how-to content:
// the multi-stage submission pipeline, the moderation visibility policy,
// tag and weighted fuzzy-search filtering, and active-item stats tracking.
//
// It exposes a single Service interface over two pluggable collaborators: a
// ContentStore for durable records with live streams (memory, Postgres
// implementations under repo/) and a MediaUploader for binary files (backed
// by blob stores under storage/). The submission pipeline reports progress
// through per-submission milestone snapshots and never retries or rolls
// back on its own.
package howto
