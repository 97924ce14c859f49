package service

//go:generate mockgen -source=../../../pkg/transport/transport.go -destination=mocks/mocks.go -package=mocks Doer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/capability"
	tagmetrics "github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/metrics"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/service/mocks"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/platform/sentinel"
	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/transport"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	client  *mocks.MockDoer
	clock   time.Time
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.client = mocks.NewMockDoer(s.ctrl)
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service = New(s.client, WithClock(func() time.Time { return s.clock }))
}

func resp(body string) *transport.Response {
	return &transport.Response{Status: http.StatusOK, Body: json.RawMessage(body)}
}

const collectionBody = `{"tags": [
	{"id": "srv-1", "code": "CARCARD-0001", "domain": "CAR", "config": {"plateNumber": "MH12AB1234"}, "isActive": true},
	{"_id": "srv-2", "code": "PETBAND-0001", "domain": "PET", "petDetails": {"petName": "Bruno"}, "status": "ACTIVE"}
]}`

// =============================================================================
// Fetch: freshness, coalescing, failure handling
// =============================================================================

func (s *ServiceSuite) TestFetch_NormalizesAndStores() {
	s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(collectionBody), nil)

	tags, err := s.service.Fetch(context.Background(), false)
	s.Require().NoError(err)
	s.Require().Len(tags, 2)
	s.Equal("srv-1", tags[0].Identity)
	s.Equal(models.DomainVehicle, tags[0].Domain)
	s.Equal("srv-2", tags[1].Identity)
	s.Equal("Bruno", tags[1].Display("petName"))
	s.Empty(s.service.Err())
	s.False(s.service.Loading())
}

func (s *ServiceSuite) TestFetch_FreshnessWindow() {
	s.Run("second call within TTL makes no network call", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(collectionBody), nil).Times(1)

		_, err := s.service.Fetch(context.Background(), false)
		s.Require().NoError(err)

		s.clock = s.clock.Add(10 * time.Second)
		tags, err := s.service.Fetch(context.Background(), false)
		s.Require().NoError(err)
		s.Len(tags, 2)
	})

	s.Run("expired TTL refetches", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(collectionBody), nil).Times(1)

		s.clock = s.clock.Add(DefaultTTL)
		_, err := s.service.Fetch(context.Background(), false)
		s.Require().NoError(err)
	})

	s.Run("force bypasses freshness", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(collectionBody), nil).Times(1)

		_, err := s.service.Fetch(context.Background(), true)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestFetch_EmptyStoreIsNeverFresh() {
	s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(`{"tags": []}`), nil).Times(2)

	_, err := s.service.Fetch(context.Background(), false)
	s.Require().NoError(err)

	// Still inside the TTL, but the store is empty, so fetch again.
	_, err = s.service.Fetch(context.Background(), false)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestFetch_CoalescesConcurrentCallers() {
	const callers = 8
	release := make(chan struct{})
	s.client.EXPECT().Get(gomock.Any(), "/tags").DoAndReturn(
		func(context.Context, string) (*transport.Response, error) {
			<-release
			return resp(collectionBody), nil
		}).Times(1)

	var wg sync.WaitGroup
	results := make([][]models.Tag, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.service.Fetch(context.Background(), false)
		}(i)
	}

	// Let every caller reach the coalescer before the round trip completes.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		s.Require().Len(results[i], 2)
		s.Equal("srv-1", results[i][0].Identity)
	}
}

func (s *ServiceSuite) TestFetch_UnauthenticatedIsSilentEmpty() {
	s.client.EXPECT().Get(gomock.Any(), "/tags").Return(nil, &transport.Error{
		Status: http.StatusUnauthorized,
		Code:   transport.CodeUnauthenticated,
	})

	tags, err := s.service.Fetch(context.Background(), false)
	s.NoError(err)
	s.Empty(tags)
	s.Empty(s.service.Tags())
	s.Empty(s.service.Err())
}

func (s *ServiceSuite) TestFetch_TransientFailureClearsStoreAndSurfacesError() {
	s.client.EXPECT().Get(gomock.Any(), "/tags").Return(resp(collectionBody), nil)
	_, err := s.service.Fetch(context.Background(), false)
	s.Require().NoError(err)

	s.client.EXPECT().Get(gomock.Any(), "/tags").Return(nil, &transport.Error{
		Code:    transport.CodeUnavailable,
		Message: "connection reset",
	})
	_, err = s.service.Fetch(context.Background(), true)
	s.Error(err)
	s.Empty(s.service.Tags())
	s.NotEmpty(s.service.Err())
}

// =============================================================================
// TogglePrivacy: optimistic mutation with rollback
// =============================================================================

func (s *ServiceSuite) seedTag() {
	s.service.Store().Upsert(models.Tag{
		Identity: "srv-1",
		Code:     "CARCARD-0001",
		Domain:   models.DomainVehicle,
		Privacy:  models.PrivacySettings{SMS: true},
	})
}

func (s *ServiceSuite) TestTogglePrivacy_AppliesOptimistically() {
	s.seedTag()
	s.client.EXPECT().Patch(gomock.Any(), "/tags/srv-1/privacy", map[string]string{"setting": models.SettingMaskedCall}).
		Return(resp(`{}`), nil)

	err := s.service.TogglePrivacy(context.Background(), "srv-1", models.SettingMaskedCall)
	s.Require().NoError(err)

	tag, err := s.service.Store().Get("srv-1")
	s.Require().NoError(err)
	s.True(tag.Privacy.MaskedCall)
	s.True(tag.Privacy.SMS)
}

func (s *ServiceSuite) TestTogglePrivacy_RollsBackOnFailure() {
	s.seedTag()
	s.client.EXPECT().Patch(gomock.Any(), "/tags/srv-1/privacy", gomock.Any()).
		Return(nil, &transport.Error{Code: transport.CodeUnavailable, Message: "boom"})

	err := s.service.TogglePrivacy(context.Background(), "srv-1", models.SettingWhatsApp)
	s.Error(err)

	tag, getErr := s.service.Store().Get("srv-1")
	s.Require().NoError(getErr)
	// Back to its exact prior value; no other setting affected.
	s.False(tag.Privacy.WhatsApp)
	s.True(tag.Privacy.SMS)
	s.False(tag.Privacy.MaskedCall)
}

func (s *ServiceSuite) TestTogglePrivacy_Validation() {
	s.seedTag()

	s.Error(s.service.TogglePrivacy(context.Background(), "srv-1", "telepathy"))
	s.ErrorIs(s.service.TogglePrivacy(context.Background(), "missing", models.SettingSMS), sentinel.ErrNotFound)
}

// =============================================================================
// Capability gate
// =============================================================================

func (s *ServiceSuite) TestGate_TripsAndFailsFast() {
	reg := prometheus.NewRegistry()
	m := tagmetrics.New(reg)
	s.service = New(s.client,
		WithClock(func() time.Time { return s.clock }),
		WithMetrics(m),
	)
	s.seedTag()

	s.client.EXPECT().Patch(gomock.Any(), "/tags/srv-1/privacy", gomock.Any()).
		Return(nil, &transport.Error{Status: http.StatusGone, Code: transport.CodeEndpointMigrated}).
		Times(1)

	s.Error(s.service.TogglePrivacy(context.Background(), "srv-1", models.SettingSMS))

	// Second call short-circuits locally: no network expectation remains.
	err := s.service.TogglePrivacy(context.Background(), "srv-1", models.SettingSMS)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrMigrated)
	s.Contains(err.Error(), capability.UnsupportedMessage)

	s.Equal(1.0, promtestutil.ToFloat64(m.GateTrips.WithLabelValues(capability.EndpointPrivacy)))
}

func (s *ServiceSuite) TestGate_ProseSignalTripsRegister() {
	s.client.EXPECT().Post(gomock.Any(), "/tags", gomock.Any()).
		Return(nil, &transport.Error{
			Status:  http.StatusInternalServerError,
			Code:    transport.CodeUnavailable,
			Message: "This API is not implemented here anymore, it was migrated to the new platform",
		}).Times(1)

	_, err := s.service.Register(context.Background(), models.RegisterTagRequest{Code: "X-1"})
	s.Error(err)

	_, err = s.service.Register(context.Background(), models.RegisterTagRequest{Code: "X-1"})
	s.ErrorIs(err, sentinel.ErrMigrated)
}

// =============================================================================
// Register / Activate
// =============================================================================

func (s *ServiceSuite) TestRegister_InsertsConfirmedEntity() {
	req := models.RegisterTagRequest{
		Code:          "CARCARD-0001",
		Domain:        models.DomainVehicle,
		DisplayConfig: map[string]any{"plateNumber": "MH12AB1234"},
	}
	s.client.EXPECT().Post(gomock.Any(), "/tags", req).Return(resp(`{"tag": {
		"id": "srv-9",
		"code": "CARCARD-0001",
		"domain": "CAR",
		"config": {"plateNumber": "MH12AB1234"},
		"isActive": true
	}}`), nil)

	tag, err := s.service.Register(context.Background(), req)
	s.Require().NoError(err)
	s.Equal("srv-9", tag.Identity)
	s.Equal(models.DomainVehicle, tag.Domain)
	s.Equal("MH12AB1234", tag.Display("plateNumber"))

	s.Equal(1, s.service.Store().Len())
	stored, err := s.service.Store().Get("srv-9")
	s.Require().NoError(err)
	s.True(stored.Active)
}

func (s *ServiceSuite) TestRegister_ConflictSurfacesServerMessage() {
	s.client.EXPECT().Post(gomock.Any(), "/tags", gomock.Any()).Return(nil, &transport.Error{
		Status:  http.StatusConflict,
		Code:    transport.CodeConflict,
		Message: "A tag with code CARCARD-0001 is already registered",
	})

	_, err := s.service.Register(context.Background(), models.RegisterTagRequest{Code: "CARCARD-0001"})
	s.Require().Error(err)
	s.Contains(err.Error(), "A tag with code CARCARD-0001 is already registered")
	s.Equal(0, s.service.Store().Len())
}

func (s *ServiceSuite) TestActivate_UpsertsOverPlaceholder() {
	// A placeholder cached under its code from an earlier list response.
	s.service.Store().Upsert(models.Tag{Identity: "CARCARD-0002", Code: "CARCARD-0002"})

	s.client.EXPECT().Post(gomock.Any(), "/tags/activate", gomock.Any()).
		Return(resp(`{"tag": {"id": "srv-7", "code": "CARCARD-0002", "domain": "CAR", "isActive": true}}`), nil)

	tag, err := s.service.Activate(context.Background(), models.ActivateTagRequest{Code: "CARCARD-0002"})
	s.Require().NoError(err)
	s.Equal("srv-7", tag.Identity)
	// No duplicate: the placeholder was replaced via the code match.
	s.Equal(1, s.service.Store().Len())
}

func (s *ServiceSuite) TestActivateOTPFlow() {
	s.client.EXPECT().Post(gomock.Any(), "/tags/activate/send-otp", gomock.Any()).Return(resp(`{"sent": true}`), nil)
	s.Require().NoError(s.service.ActivateSendOTP(context.Background(), models.ActivateOTPRequest{Code: "C-1", Phone: "+911234567890"}))

	s.client.EXPECT().Post(gomock.Any(), "/tags/activate/verify-otp", gomock.Any()).
		Return(resp(`{"tag": {"id": "srv-8", "code": "C-1", "domain": "CHILD", "isActive": true}}`), nil)
	tag, err := s.service.ActivateVerifyOTP(context.Background(), models.ActivateOTPRequest{Code: "C-1", OTP: "123456"})
	s.Require().NoError(err)
	s.Equal(models.DomainChild, tag.Domain)
}

// =============================================================================
// Two-phase update
// =============================================================================

func (s *ServiceSuite) TestUpdate_OTPRequiredLeavesStoreUntouched() {
	s.seedTag()
	changes := models.UpdateTagRequest{Phone: "+919999999999"}

	s.client.EXPECT().Put(gomock.Any(), "/tags/srv-1", changes).Return(resp(`{"otpRequired": true}`), nil)

	result, err := s.service.Update(context.Background(), "srv-1", changes)
	s.Require().NoError(err)
	s.True(result.OTPRequired)
	s.Nil(result.Tag)

	// Nothing applied speculatively.
	tag, err := s.service.Store().Get("srv-1")
	s.Require().NoError(err)
	s.Equal(models.DomainVehicle, tag.Domain)
}

func (s *ServiceSuite) TestUpdate_LowRiskAppliesDirectly() {
	s.seedTag()
	changes := models.UpdateTagRequest{DisplayConfig: map[string]any{"plateNumber": "MH14ZZ0001"}}

	s.client.EXPECT().Put(gomock.Any(), "/tags/srv-1", changes).Return(resp(`{"tag": {
		"id": "srv-1", "code": "CARCARD-0001", "domain": "CAR",
		"config": {"plateNumber": "MH14ZZ0001"}, "isActive": true
	}}`), nil)

	result, err := s.service.Update(context.Background(), "srv-1", changes)
	s.Require().NoError(err)
	s.False(result.OTPRequired)
	s.Require().NotNil(result.Tag)
	s.Equal("MH14ZZ0001", result.Tag.Display("plateNumber"))
}

func (s *ServiceSuite) TestVerifyOTPAndUpdate_AppliesPendingChanges() {
	s.seedTag()
	req := models.VerifyOTPRequest{
		OTP:     "123456",
		Changes: models.UpdateTagRequest{Phone: "+919999999999"},
	}

	s.client.EXPECT().Post(gomock.Any(), "/tags/srv-1/otp/send", nil).Return(resp(`{"sent": true}`), nil)
	s.Require().NoError(s.service.SendOTP(context.Background(), "srv-1"))

	s.client.EXPECT().Post(gomock.Any(), "/tags/srv-1/otp/verify", req).Return(resp(`{"tag": {
		"id": "srv-1", "code": "CARCARD-0001", "domain": "CAR", "isActive": true
	}}`), nil)
	tag, err := s.service.VerifyOTPAndUpdate(context.Background(), "srv-1", req)
	s.Require().NoError(err)
	s.Equal("srv-1", tag.Identity)
	s.Equal(1, s.service.Store().Len())
}

// =============================================================================
// Public lookup
// =============================================================================

func (s *ServiceSuite) TestPublicTag() {
	s.Run("open tag", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags/srv-1/public").
			Return(resp(`{"code": "CARCARD-0001", "domain": "CAR", "locked": false}`), nil)

		public, err := s.service.PublicTag(context.Background(), "srv-1")
		s.Require().NoError(err)
		s.False(public.Locked)
		s.Equal("CARCARD-0001", public.Code)
	})

	s.Run("locked tag returns the locked payload, not an error", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags/srv-2/public").Return(nil, &transport.Error{
			Status: http.StatusForbidden,
			Code:   transport.CodeForbidden,
			Body:   json.RawMessage(`{"locked": true, "code": "PETBAND-0001", "message": "The owner has locked public lookups for this tag"}`),
		})

		public, err := s.service.PublicTag(context.Background(), "srv-2")
		s.Require().NoError(err)
		s.True(public.Locked)
		s.Equal("PETBAND-0001", public.Code)
	})

	s.Run("plain 403 without locked flag stays an error", func() {
		s.client.EXPECT().Get(gomock.Any(), "/tags/srv-3/public").Return(nil, &transport.Error{
			Status: http.StatusForbidden,
			Code:   transport.CodeForbidden,
			Body:   json.RawMessage(`{"error": "forbidden"}`),
		})

		_, err := s.service.PublicTag(context.Background(), "srv-3")
		s.Error(err)
	})
}
