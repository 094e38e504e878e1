package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

func TestResolveNameFallback(t *testing.T) {
	resolved, err := Resolve(Attributes{})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", resolved.Name)
	assert.Equal(t, "Anonymous@mailinator.com", resolved.Email)
}

func TestResolveEmailFallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		attrs Attributes
		want  string
	}{
		{
			name:  "name collapses to placeholder address",
			attrs: Attributes{Name: "John Doe"},
			want:  "JohnDoe@mailinator.com",
		},
		{
			name:  "phone digits when name is absent",
			attrs: Attributes{Phone: "555-123-4567"},
			want:  "anonymous-5551234567@mailinator.com",
		},
		{
			name: "street and city when name and phone are absent",
			attrs: Attributes{Address: models.Address{
				Street1: "12 Main St",
				City:    "Springfield",
			}},
			want: "anonymous-12mainst-springfield@mailinator.com",
		},
		{
			name: "street2 stands in for a missing street1",
			attrs: Attributes{Address: models.Address{
				Street2: "Apt 4",
				City:    "Springfield",
			}},
			want: "anonymous-apt4-springfield@mailinator.com",
		},
		{
			name:  "nothing at all",
			attrs: Attributes{},
			want:  "Anonymous@mailinator.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(tt.attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resolved.Email)
		})
	}
}

func TestResolveExplicitEmail(t *testing.T) {
	t.Run("valid email passes through unchanged", func(t *testing.T) {
		resolved, err := Resolve(Attributes{Name: "Jane", Email: "jane@example.org"})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.org", resolved.Email)
	})

	t.Run("malformed email is a field-scoped validation error", func(t *testing.T) {
		_, err := Resolve(Attributes{Email: "not-an-email"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "email", dErrors.FieldOf(err))
	})

	t.Run("display-name form is rejected", func(t *testing.T) {
		_, err := Resolve(Attributes{Email: "Jane <jane@example.org>"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestNormalizeZip(t *testing.T) {
	tests := []struct {
		name    string
		zip     string
		country string
		want    string
	}{
		{"four-digit US zip gains a leading zero", "6419", "US", "06419"},
		{"five-digit US zip unchanged", "90210", "US", "90210"},
		{"lowercase country code still counts as US", "6419", "us", "06419"},
		{"non-US four-digit code unchanged", "1234", "CA", "1234"},
		{"non-numeric four-char code unchanged", "A1B2", "US", "A1B2"},
		{"blank zip stays blank", "", "US", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeZip(tt.zip, tt.country))
		})
	}
}
