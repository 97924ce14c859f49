package service

import (
	"context"
	"time"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/wire"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/transport"
)

// fetchKey is the singleflight key for collection fetches; there is only
// ever one collection per service instance.
const fetchKey = "fetch"

// Fetch synchronizes the store with GET /tags and returns the resulting
// collection.
//
// Concurrent callers collapse into one network round trip: callers that
// arrive while a fetch is in flight share its result. When the store is
// fresh (last success within the TTL and non-empty) and force is false, the
// cached collection is returned without touching the network. force starts a
// new request even if one is in flight.
//
// A 401 is an expected, recoverable state (expired session), not a data
// problem: the store is emptied and no error is surfaced. Any other failure
// clears the store and records a user-facing error message.
func (s *Service) Fetch(ctx context.Context, force bool) ([]models.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.fetch")
	defer span.End()

	if !force && s.freshness.isFresh(s.now(), s.ttl, s.store.Len() > 0) {
		s.metrics.IncCacheHit()
		return s.store.Tags(), nil
	}

	if force {
		// Detach any in-flight call so the forced fetch really goes out.
		s.group.Forget(fetchKey)
	}

	result, err, shared := s.group.Do(fetchKey, func() (any, error) {
		return s.fetchRemote(ctx)
	})
	if shared {
		s.metrics.IncCoalesced()
	}
	if err != nil {
		return nil, err
	}
	return result.([]models.Tag), nil
}

// fetchRemote performs the actual round trip. It runs on the context of the
// caller that opened the flight; joiners share its cancellation.
func (s *Service) fetchRemote(ctx context.Context) ([]models.Tag, error) {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	start := time.Now()
	resp, err := s.client.Get(ctx, "/tags")
	if err != nil {
		if transport.CodeOf(err) == transport.CodeUnauthenticated {
			// Expired session reads as "no tags", silently. The freshness
			// timestamp is left alone so the next call retries.
			s.store.ReplaceAll(nil)
			s.store.SetError("")
			return nil, nil
		}
		s.logf("tags: collection fetch failed: %v", err)
		s.store.ReplaceAll(nil)
		s.store.SetError("Could not load your tags. Please try again.")
		return nil, err
	}
	s.metrics.ObserveFetch(start)

	tags, err := wire.NormalizeCollection(resp.Body)
	if err != nil {
		s.logf("tags: unusable collection payload: %v", err)
		s.store.ReplaceAll(nil)
		s.store.SetError("Could not load your tags. Please try again.")
		return nil, err
	}
	for i := range tags {
		if tags[i].Domain == models.DomainUnknown {
			s.metrics.IncUnknownDomain()
		}
	}

	s.store.ReplaceAll(tags)
	s.store.SetError("")
	s.freshness.markFetched(s.now())
	return tags, nil
}
