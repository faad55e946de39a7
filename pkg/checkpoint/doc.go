// Package checkpoint writes a run's posts to disk.
//
// While enrichment runs, Checkpoint rewrites posts_<channel>_temp_<stamp>.json
// with the posts processed so far; Finalize writes the complete
// posts_<channel>_<stamp>.json. Every write goes to a temporary file first and
// is renamed into place, so a reader never sees a half-written document and a
// crash loses at most the posts processed since the last snapshot.
package checkpoint
