package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/transport"
)

// PublicTag looks a tag up for the unauthenticated scan flow. When the owner
// has locked public lookups the server answers 403 with a locked payload;
// that payload is returned to the caller as a normal result, not an error,
// so the scan screen can render the locked state.
func (s *Service) PublicTag(ctx context.Context, identity string) (models.PublicTag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.public_lookup")
	defer span.End()

	resp, err := s.client.Get(ctx, "/tags/"+identity+"/public")
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) && te.Status == http.StatusForbidden {
			var public models.PublicTag
			if decodeErr := json.Unmarshal(te.Body, &public); decodeErr == nil && public.Locked {
				return public, nil
			}
		}
		return models.PublicTag{}, err
	}

	var public models.PublicTag
	if err := resp.Decode(&public); err != nil {
		return models.PublicTag{}, err
	}
	return public, nil
}
