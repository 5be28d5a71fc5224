package articles

import (
	"context"

	"golang.org/x/sync/singleflight"

	apperrors "gdeltnews/internal/shared/errors"
)

// FlightRegistry collapses concurrent fetches for the same day key into a
// single execution. Followers share the leader's outcome; state established
// by the leader is observed by re-reading the store afterwards.
type FlightRegistry struct {
	group singleflight.Group
}

func NewFlightRegistry() *FlightRegistry {
	return &FlightRegistry{}
}

// Do runs fn under key, guaranteeing at most one in-flight execution per
// key process-wide. fn receives the leader's context: if the leader's
// deadline elapses mid-fetch the fetch is cancelled for everyone. A
// follower whose own deadline elapses while waiting returns a timeout
// without aborting the in-flight execution; the leader completes on its
// own and its result benefits future callers via the store.
func (r *FlightRegistry) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ch := r.group.DoChan(key, func() (any, error) {
		return nil, fn(ctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return apperrors.NewTimeoutError("timed out waiting for in-flight fetch", key)
	}
}
