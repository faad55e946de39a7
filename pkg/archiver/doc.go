// Package archiver runs a complete archive of one channel's community feed.
//
// A run has four stages:
//
//   - Startup: launch a browser session (through the next proxy when proxies
//     are configured), open the feed, create the run directory and wait for
//     the first post. A feed without posts still produces an empty document.
//   - Collection: scroll the feed until it is exhausted or the requested
//     number of posts was found.
//   - Enrichment: read image URLs, download images and collect comments as
//     configured, with periodic progress snapshots.
//   - Export: write the final JSON document and report a summary.
//
// Only startup can fail a run. Later problems degrade the result, and a
// cancelled context still exports what was collected.
//
// Usage:
//
//	a, err := archiver.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	a.SetReporter(ui.NewProgressDisplay("channel", false))
//	summary, err := a.Run(ctx, "https://www.youtube.com/@channel/community")
package archiver
