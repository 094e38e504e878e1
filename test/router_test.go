package test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authhandler "github.com/mlongerich/DonationTracker-sub003/internal/auth/handler"
	childmodels "github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	childstore "github.com/mlongerich/DonationTracker-sub003/internal/child/store"
	donationhandler "github.com/mlongerich/DonationTracker-sub003/internal/donation/handler"
	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	donorhandler "github.com/mlongerich/DonationTracker-sub003/internal/donor/handler"
	donorservice "github.com/mlongerich/DonationTracker-sub003/internal/donor/service"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/ingest"
	ingesthandler "github.com/mlongerich/DonationTracker-sub003/internal/ingest/handler"
	jwttoken "github.com/mlongerich/DonationTracker-sub003/internal/jwt_token"
	"github.com/mlongerich/DonationTracker-sub003/internal/lifecycle"
	lifecyclehandler "github.com/mlongerich/DonationTracker-sub003/internal/lifecycle/handler"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/secrets"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshiphandler "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/handler"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	httptransport "github.com/mlongerich/DonationTracker-sub003/internal/transport/http"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/testutil"
)

const operatorSecret = "router-test-operator-secret"

// newStack assembles the full HTTP surface on in-memory stores.
func newStack(t *testing.T) (http.Handler, *jwttoken.JWTService, *childstore.InMemory) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	donors := donorstore.NewInMemory()
	children := childstore.NewInMemory()
	projects := projectstore.NewInMemory()
	sponsorships := sponsorshipstore.NewInMemory()
	donations := donationstore.NewInMemory()
	invoices := donationstore.NewInMemoryInvoices()

	_, err := projectstore.SeedGeneralFund(ctx, projects)
	require.NoError(t, err)

	sponsorshipSvc := sponsorshipservice.New(sponsorships, children, projects, donors, nil,
		sponsorshipservice.WithLogger(logger))
	donationSvc := donationservice.New(donations, invoices, donors, projects, sponsorshipSvc, nil,
		donationservice.WithLogger(logger))
	donorSvc := donorservice.New(donors, donations, sponsorships, nil,
		donorservice.WithLogger(logger))
	lifecycleSvc := lifecycle.New(donors, children, projects, sponsorships, donations, nil,
		lifecycle.WithLogger(logger))
	ingestSvc := ingest.New(donationSvc, ingest.WithLogger(logger))

	tokens := jwttoken.NewJWTService("router-test-key", "donation-tracker")
	secretHash, err := secrets.Hash(operatorSecret)
	require.NoError(t, err)

	router := httptransport.NewRouter(httptransport.Deps{
		Donations:      donationhandler.New(donationSvc, logger),
		Sponsorships:   sponsorshiphandler.New(sponsorshipSvc, logger),
		Donors:         donorhandler.New(donorSvc, logger),
		Lifecycle:      lifecyclehandler.New(lifecycleSvc, logger),
		Ingest:         ingesthandler.New(ingestSvc, logger),
		Auth:           authhandler.New(tokens, secretHash, logger),
		TokenValidator: tokens,
		Logger:         logger,
	})
	return router, tokens, children
}

func TestRouterSurface(t *testing.T) {
	router, _, _ := newStack(t)

	testutil.Given(t, "the assembled HTTP router", func(t *testing.T) {
		testutil.When(t, "checking health", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports ok", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
			})
		})

		testutil.When(t, "posting a donation", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/donations", map[string]any{
				"amount_cents":   2500,
				"date":           "2026-02-01",
				"payment_method": "stripe",
				"donor":          map[string]string{"name": "Jane Doe", "email": "jane@example.org"},
			}))

			testutil.Then(t, "it lands on the general fund", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusCreated)
				resp := testutil.UnmarshalResponse[donationhandler.CreateDonationResponse](t, rec)
				require.True(t, resp.DonorCreated)
				require.NotNil(t, resp.Donation)
			})
		})
	})
}

func TestRouterAdminGuard(t *testing.T) {
	router, tokens, children := newStack(t)
	ctx := context.Background()

	child, err := childmodels.NewChild(id.NewChildID(), "Amara", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, children.Create(ctx, child))

	archivePath := "/children/" + child.ID.String() + "/archive"

	testutil.Given(t, "an admin-guarded route", func(t *testing.T) {
		testutil.When(t, "calling it without a token", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, archivePath))

			testutil.Then(t, "it is unauthorized", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusUnauthorized)
			})
		})

		testutil.When(t, "calling it with an admin token", func(t *testing.T) {
			token, err := tokens.GenerateAdminToken("ops@example.org", time.Hour)
			require.NoError(t, err)

			req := testutil.NewRequest(t, http.MethodPost, archivePath)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "the child is archived", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusNoContent)
			})
		})

		testutil.When(t, "exchanging the operator secret for a token", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]string{
				"operator": "ops@example.org",
				"secret":   operatorSecret,
			}))

			testutil.Then(t, "the minted token opens the admin surface", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				resp := testutil.UnmarshalResponse[authhandler.ExchangeResponse](t, rec)

				req := testutil.NewRequest(t, http.MethodPost, "/children/"+child.ID.String()+"/restore")
				req.Header.Set("Authorization", "Bearer "+resp.Token)
				restored := testutil.DoRequest(router, req)
				testutil.AssertStatus(t, restored, http.StatusNoContent)
			})
		})

		testutil.When(t, "posting a reconciliation batch with an admin token", func(t *testing.T) {
			token, err := tokens.GenerateAdminToken("ops@example.org", time.Hour)
			require.NoError(t, err)

			req := testutil.NewJSONRequest(t, http.MethodPost, "/ingest/batch", map[string]any{
				"records": []map[string]any{{
					"amount_cents":        2500,
					"date":                "2026-02-01T00:00:00Z",
					"donor":               map[string]string{"name": "Jane Doe", "email": "jane@example.org"},
					"payment_method":      "stripe",
					"external_invoice_id": "inv-001",
				}},
			})
			req.Header.Set("Authorization", "Bearer "+token)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "the batch lands", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				summary := testutil.UnmarshalResponse[ingest.Summary](t, rec)
				require.Equal(t, 1, summary.Created)
			})
		})
	})
}
