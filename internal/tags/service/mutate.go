package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/capability"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
)

// TogglePrivacy flips one privacy toggle optimistically: the local value
// changes before the network call so the UI reflects it with zero latency,
// and is flipped back to its exact prior value if the server rejects the
// mutation. No intermediate pending state is modeled; the correction is
// silent, matching the low stakes of a privacy flag.
//
// Two concurrent toggles of the same setting on the same tag are not
// serialized against each other; the last server response wins. A mutex per
// entity would cost more than this field is worth.
func (s *Service) TogglePrivacy(ctx context.Context, identity, setting string) error {
	ctx, span := s.tracer.Start(ctx, "tags.toggle_privacy")
	defer span.End()

	if !models.KnownSetting(setting) {
		return fmt.Errorf("unknown privacy setting %q", setting)
	}
	if err := s.guard(capability.EndpointPrivacy); err != nil {
		return err
	}

	tag, err := s.store.Get(identity)
	if err != nil {
		return err
	}
	next := !tag.Privacy.Value(setting)

	prior, err := s.store.SetPrivacy(identity, setting, next)
	if err != nil {
		return err
	}

	_, err = s.client.Patch(ctx, "/tags/"+identity+"/privacy", map[string]string{"setting": setting})
	if err != nil {
		// Exact inverse of the optimistic step; no other setting is touched.
		if _, rbErr := s.store.SetPrivacy(identity, setting, prior); rbErr != nil {
			s.logf("tags: rollback of %s on %s failed: %v", setting, identity, rbErr)
		}
		s.metrics.IncRollback()
		s.recordGate(capability.EndpointPrivacy, err)
		return err
	}
	return nil
}

// Update submits intended changes for a tag. Identity-bearing and
// phone-verified fields are never applied speculatively: when the server
// answers with otpRequired the store is left untouched and the caller must
// complete the flow via SendOTP + VerifyOTPAndUpdate, resubmitting the same
// pending changes.
func (s *Service) Update(ctx context.Context, identity string, req models.UpdateTagRequest) (models.UpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "tags.update")
	defer span.End()

	if err := s.guard(capability.EndpointUpdate); err != nil {
		return models.UpdateResult{}, err
	}
	resp, err := s.client.Put(ctx, "/tags/"+identity, req)
	if err != nil {
		s.recordGate(capability.EndpointUpdate, err)
		return models.UpdateResult{}, err
	}

	if otpRequired(resp.Body) {
		return models.UpdateResult{OTPRequired: true}, nil
	}
	tag, err := s.ingestTag(resp.Body)
	if err != nil {
		return models.UpdateResult{}, err
	}
	return models.UpdateResult{Tag: &tag}, nil
}

// SendOTP requests a verification code for a pending high-risk update.
func (s *Service) SendOTP(ctx context.Context, identity string) error {
	ctx, span := s.tracer.Start(ctx, "tags.send_otp")
	defer span.End()

	if err := s.guard(capability.EndpointUpdate); err != nil {
		return err
	}
	_, err := s.client.Post(ctx, "/tags/"+identity+"/otp/send", nil)
	if err != nil {
		s.recordGate(capability.EndpointUpdate, err)
	}
	return err
}

// VerifyOTPAndUpdate completes a two-phase update: the verification code
// travels together with the same pending changes from the first phase, and
// the store is updated only from the server's confirmed entity.
func (s *Service) VerifyOTPAndUpdate(ctx context.Context, identity string, req models.VerifyOTPRequest) (models.Tag, error) {
	ctx, span := s.tracer.Start(ctx, "tags.verify_otp_update")
	defer span.End()

	if err := s.guard(capability.EndpointUpdate); err != nil {
		return models.Tag{}, err
	}
	resp, err := s.client.Post(ctx, "/tags/"+identity+"/otp/verify", req)
	if err != nil {
		s.recordGate(capability.EndpointUpdate, err)
		return models.Tag{}, err
	}
	return s.ingestTag(resp.Body)
}

func otpRequired(body json.RawMessage) bool {
	var flag struct {
		OTPRequired bool `json:"otpRequired"`
	}
	if err := json.Unmarshal(body, &flag); err != nil {
		return false
	}
	return flag.OTPRequired
}
