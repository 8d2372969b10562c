// Package discovery finds layer manifests on disk and builds the catalog the
// engine works from. Scanner parses manifests concurrently and hands back a
// finished catalog; Watcher reports manifest changes so callers can rescan
// and swap the catalog in.
package discovery
