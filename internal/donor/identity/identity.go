// Package identity resolves partial donor attributes into a fully populated
// donor identity. It is a pure function over its input: no store access, no
// side effects, so every fallback rule is unit-testable in isolation.
package identity

import (
	"net/mail"
	"strings"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// AnonymousName is the fallback for donors that arrive without a name.
const AnonymousName = "Anonymous"

// fallbackDomain hosts every synthesized address so placeholder identities
// are recognizable and deliverable to a sink.
const fallbackDomain = "@mailinator.com"

// Attributes are the raw donor hints an ingestion record or form may carry.
// Every field is optional.
type Attributes struct {
	Name    string
	Email   string
	Phone   string
	Address models.Address
}

// Identity is a fully populated donor identity: name and email are never
// blank, and the zip code is normalized.
type Identity struct {
	Name    string
	Email   string
	Phone   string
	Address models.Address
}

// Resolve applies the fallback chain to raw attributes.
//
// Name: blank resolves to "Anonymous". Email: an explicit value is validated
// and returned unchanged; a blank one is synthesized from, in priority order,
// the non-anonymous name, the phone digits, the street/city, or the literal
// anonymous address. Errors: CodeValidation, field-scoped, for a malformed
// explicit email.
func Resolve(attrs Attributes) (Identity, error) {
	name := strings.TrimSpace(attrs.Name)
	if name == "" {
		name = AnonymousName
	}

	email := strings.TrimSpace(attrs.Email)
	if email != "" {
		if !validEmail(email) {
			return Identity{}, dErrors.NewField("email", "is invalid")
		}
	} else {
		email = fallbackEmail(name, attrs.Phone, attrs.Address)
	}

	addr := attrs.Address
	addr.ZipCode = NormalizeZip(addr.ZipCode, addr.Country)

	return Identity{
		Name:    name,
		Email:   email,
		Phone:   strings.TrimSpace(attrs.Phone),
		Address: addr,
	}, nil
}

// fallbackEmail synthesizes a placeholder address when none was supplied.
func fallbackEmail(name, phone string, addr models.Address) string {
	if name != AnonymousName {
		return strings.ReplaceAll(name, " ", "") + fallbackDomain
	}
	if digits := digitsOnly(phone); digits != "" {
		return "anonymous-" + digits + fallbackDomain
	}
	street := addr.Street1
	if street == "" {
		street = addr.Street2
	}
	if street != "" || addr.City != "" {
		return "anonymous-" + normalizePart(street) + "-" + normalizePart(addr.City) + fallbackDomain
	}
	return AnonymousName + fallbackDomain
}

// NormalizeZip zero-pads 4-digit US zip codes to 5. Non-US codes and
// already-5-digit codes pass through unchanged.
func NormalizeZip(zip, country string) string {
	zip = strings.TrimSpace(zip)
	if !strings.EqualFold(country, "US") {
		return zip
	}
	if len(zip) == 4 && digitsOnly(zip) == zip {
		return "0" + zip
	}
	return zip
}

func validEmail(email string) bool {
	parsed, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms like `Jane <jane@example.com>`; donors supply
	// bare addresses.
	return parsed.Address == email
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizePart(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
