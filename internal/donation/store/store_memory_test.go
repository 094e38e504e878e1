package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

func newDonation(t *testing.T, mutate func(*models.Donation)) *models.Donation {
	t.Helper()
	d, err := models.NewDonation(id.NewDonationID(), id.NewDonorID(), id.NewProjectID(), 2500,
		time.Now(), models.MethodCheck, models.StatusSucceeded, time.Now())
	require.NoError(t, err)
	if mutate != nil {
		mutate(d)
	}
	return d
}

func strPtr(s string) *string { return &s }

func TestExistsSubscriptionForOtherChild(t *testing.T) {
	ctx := context.Background()
	childA := id.NewChildID()
	childB := id.NewChildID()

	store := NewInMemory()
	require.NoError(t, store.Create(ctx, newDonation(t, func(d *models.Donation) {
		d.ExternalSubscriptionID = strPtr("sub-001")
		d.ChildID = &childA
	})))

	cases := []struct {
		name     string
		sub      string
		child    *id.ChildID
		expected bool
	}{
		{"same child is not a duplicate", "sub-001", &childA, false},
		{"another child is", "sub-001", &childB, true},
		{"no child at all counts as different", "sub-001", nil, true},
		{"unknown subscription never matches", "sub-999", &childB, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.ExistsSubscriptionForOtherChild(ctx, tc.sub, tc.child)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("two unattached records do not flag each other", func(t *testing.T) {
		unattached := NewInMemory()
		require.NoError(t, unattached.Create(ctx, newDonation(t, func(d *models.Donation) {
			d.ExternalSubscriptionID = strPtr("sub-002")
		})))

		got, err := unattached.ExistsSubscriptionForOtherChild(ctx, "sub-002", nil)
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestFindByExternalInvoiceID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	d := newDonation(t, func(d *models.Donation) {
		d.ExternalInvoiceID = strPtr("inv-001")
	})
	require.NoError(t, store.Create(ctx, d))

	found, err := store.FindByExternalInvoiceID(ctx, "inv-001")
	require.NoError(t, err)
	assert.Equal(t, d.ID, found.ID)

	_, err = store.FindByExternalInvoiceID(ctx, "inv-404")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestReassignDonor(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	from := id.NewDonorID()
	to := id.NewDonorID()

	for range 2 {
		require.NoError(t, store.Create(ctx, newDonation(t, func(d *models.Donation) {
			d.DonorID = from
		})))
	}
	bystander := newDonation(t, nil)
	require.NoError(t, store.Create(ctx, bystander))

	moved, err := store.ReassignDonor(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	exists, err := store.ExistsForDonor(ctx, from)
	require.NoError(t, err)
	assert.False(t, exists, "no donation may stay behind on the merged-away donor")

	kept, err := store.FindByID(ctx, bystander.ID)
	require.NoError(t, err)
	assert.Equal(t, bystander.DonorID, kept.DonorID)
}
