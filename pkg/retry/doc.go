// Package retry retries failing operations.
//
// Do and DoWithResult retry plain operations such as HTTP requests with a
// configurable backoff. WithSession retries operations against a browser and
// replaces the browser session between attempts:
//
//	policy := retry.DefaultSessionPolicy(factory, log)
//	comments, session := retry.WithSession(ctx, policy, session,
//		func(ctx context.Context, s browser.Session) ([]models.Comment, error) {
//			return readComments(ctx, s, postURL)
//		})
//
// WithSession never returns an error: after the last attempt it yields the
// zero value, which callers treat as "no data for this item".
package retry
