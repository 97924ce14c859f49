package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/capability"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/wire"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/platform/sentinel"
)

// errEndpointUnsupported is returned for calls short-circuited by the
// capability gate. The message is stable regardless of the server's wording.
var errEndpointUnsupported = fmt.Errorf("%w: %s", sentinel.ErrMigrated, capability.UnsupportedMessage)

// guard fails fast when the gate has latched endpoint unsupported.
func (s *Service) guard(endpoint string) error {
	if !s.gate.Supported(endpoint) {
		return errEndpointUnsupported
	}
	return nil
}

// recordGate latches the gate when err is a migration signal.
func (s *Service) recordGate(endpoint string, err error) {
	if s.gate.RecordResult(endpoint, err) {
		s.metrics.IncGateTrip(endpoint)
		s.logf("tags: endpoint %q reported migrated, disabling for this session", endpoint)
	}
}

// Register creates a new tag server-side and upserts the confirmed entity.
// The store only ever learns of a tag from a server response; there is no
// speculative client-side creation. Duplicate-code conflicts come back with
// the server's own message intact.
func (s *Service) Register(ctx context.Context, req models.RegisterTagRequest) (models.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.register")
	defer span.End()

	if err := s.guard(capability.EndpointRegister); err != nil {
		return models.Tag{}, err
	}
	resp, err := s.client.Post(ctx, "/tags", req)
	if err != nil {
		s.recordGate(capability.EndpointRegister, err)
		return models.Tag{}, err
	}
	return s.ingestTag(resp.Body)
}

// Activate claims a pre-manufactured tag for this account.
func (s *Service) Activate(ctx context.Context, req models.ActivateTagRequest) (models.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.activate")
	defer span.End()

	if err := s.guard(capability.EndpointActivate); err != nil {
		return models.Tag{}, err
	}
	resp, err := s.client.Post(ctx, "/tags/activate", req)
	if err != nil {
		s.recordGate(capability.EndpointActivate, err)
		return models.Tag{}, err
	}
	return s.ingestTag(resp.Body)
}

// ActivateSendOTP starts a phone-verified activation.
func (s *Service) ActivateSendOTP(ctx context.Context, req models.ActivateOTPRequest) error {
	ctx, span := s.tracer.Start(ctx, "tags.activate_send_otp")
	defer span.End()

	if err := s.guard(capability.EndpointActivate); err != nil {
		return err
	}
	_, err := s.client.Post(ctx, "/tags/activate/send-otp", req)
	if err != nil {
		s.recordGate(capability.EndpointActivate, err)
	}
	return err
}

// ActivateVerifyOTP completes a phone-verified activation and upserts the
// activated tag.
func (s *Service) ActivateVerifyOTP(ctx context.Context, req models.ActivateOTPRequest) (models.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.activate_verify_otp")
	defer span.End()

	if err := s.guard(capability.EndpointActivate); err != nil {
		return models.Tag{}, err
	}
	resp, err := s.client.Post(ctx, "/tags/activate/verify-otp", req)
	if err != nil {
		s.recordGate(capability.EndpointActivate, err)
		return models.Tag{}, err
	}
	return s.ingestTag(resp.Body)
}

// ingestTag normalizes a single-tag response body and upserts it. The
// backend wraps the entity in "tag" or "data" envelopes on some endpoints
// and returns it bare on others.
func (s *Service) ingestTag(body json.RawMessage) (models.Tag, error) {
	tag, err := wire.Normalize(unwrapTag(body))
	if err != nil {
		return models.Tag{}, err
	}
	if tag.Domain == models.DomainUnknown {
		s.metrics.IncUnknownDomain()
	}
	s.store.Upsert(tag)
	return tag, nil
}

func unwrapTag(body json.RawMessage) json.RawMessage {
	var envelope struct {
		Tag  json.RawMessage `json:"tag"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Tag) > 0 && string(envelope.Tag) != "null" {
			return envelope.Tag
		}
		if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			return envelope.Data
		}
	}
	return body
}
