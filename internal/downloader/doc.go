// Package downloader fetches post images sequentially, in discovery order,
// and records where each one was saved.
package downloader
