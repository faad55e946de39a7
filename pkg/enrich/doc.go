// Package enrich runs the image and comment phases over collected posts.
//
// The image phase stays on the feed page: it scrolls each post into view and
// reads its attachment markup. The per-post loop then downloads images,
// collects comments from the post's permalink page and writes a checkpoint
// every CheckpointInterval posts. Comment collection runs under a
// retry.SessionPolicy, so a broken browser is replaced with a fresh one
// (using the next proxy) and a post that keeps failing ends up with an empty
// comment list instead of stopping the run.
package enrich
