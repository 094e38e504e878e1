package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/handler/mocks"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/donation-mocks.go -package=mocks Service
type DonationHandlerSuite struct {
	suite.Suite
}

func TestDonationHandlerSuite(t *testing.T) {
	suite.Run(t, new(DonationHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *DonationHandlerSuite) TestHandleCreate() {
	router, mockService := newTestHandler(s.T())

	donationID := id.NewDonationID()
	donorID := id.NewDonorID()
	mockService.EXPECT().CreateDonation(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req service.CreateDonationRequest) (*service.CreateResult, error) {
			s.Equal(int64(2500), req.AmountCents)
			s.Equal("stripe", req.PaymentMethod)
			s.Equal("Jane Doe", req.Donor.Name)
			s.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), req.Date)
			return &service.CreateResult{
				Donation:     &models.Donation{ID: donationID, DonorID: donorID, AmountCents: 2500},
				Donor:        &donormodels.Donor{ID: donorID, Name: "Jane Doe"},
				DonorCreated: true,
			}, nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", map[string]any{
		"amount_cents":   2500,
		"date":           "2026-02-01",
		"payment_method": "stripe",
		"donor":          map[string]string{"name": "Jane Doe", "email": "jane@example.org"},
	})
	rr := testutil.DoRequest(router, testutil.WithRequestID(req, "req-1"))

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[CreateDonationResponse](s.T(), rr)
	s.Equal(donationID, resp.Donation.ID)
	s.True(resp.DonorCreated)
	s.False(resp.SponsorshipCreated)
}

func (s *DonationHandlerSuite) TestHandleCreateValidation() {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"amount_cents": 0, "payment_method": "stripe"}},
		{"missing payment method", map[string]any{"amount_cents": 2500}},
		{"child and project together", map[string]any{
			"amount_cents":   2500,
			"payment_method": "stripe",
			"child_id":       id.NewChildID().String(),
			"project_id":     id.NewProjectID().String(),
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, _ := newTestHandler(s.T())

			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", tc.body)
			rr := testutil.DoRequest(router, req)

			testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
		})
	}
}

func (s *DonationHandlerSuite) TestHandleCreateMalformedBody() {
	router, _ := newTestHandler(s.T())

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/donations", "{not json")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *DonationHandlerSuite) TestHandleCreateServiceError() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().CreateDonation(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "donor not found"))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", map[string]any{
		"amount_cents":   2500,
		"payment_method": "stripe",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *DonationHandlerSuite) TestHandleListViews() {
	s.Run("default view lists active donations", func() {
		router, mockService := newTestHandler(s.T())
		mockService.EXPECT().Active(gomock.Any()).Return([]*models.Donation{{ID: id.NewDonationID()}}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ListDonationsResponse](s.T(), rr)
		s.Len(resp.Donations, 1)
	})

	s.Run("pending_review view", func() {
		router, mockService := newTestHandler(s.T())
		mockService.EXPECT().PendingReview(gomock.Any()).Return(nil, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations?view=pending_review"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("unknown view is rejected before the service runs", func() {
		router, _ := newTestHandler(s.T())

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations?view=everything"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *DonationHandlerSuite) TestHandleGet() {
	s.Run("found", func() {
		router, mockService := newTestHandler(s.T())
		donationID := id.NewDonationID()
		mockService.EXPECT().Get(gomock.Any(), donationID).Return(&models.Donation{ID: donationID}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+donationID.String()))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("malformed id", func() {
		router, _ := newTestHandler(s.T())

		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/nope"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})
}

func (s *DonationHandlerSuite) TestHandleForSubscription() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().ForSubscription(gomock.Any(), "sub-001").
		Return([]*models.Donation{{ID: id.NewDonationID()}}, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/subscription/sub-001"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[ListDonationsResponse](s.T(), rr)
	s.Len(resp.Donations, 1)
}
