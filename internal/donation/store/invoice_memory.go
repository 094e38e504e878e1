package store

import (
	"context"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemoryInvoices is a map-backed invoice store keyed by the provider's
// invoice id, mirroring the invoices table's unique constraint.
type InMemoryInvoices struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice
}

func NewInMemoryInvoices() *InMemoryInvoices {
	return &InMemoryInvoices{invoices: make(map[string]*models.Invoice)}
}

// Upsert inserts the invoice or, when one with the same external invoice id
// already exists, refreshes its mutable fields in place. The stored row keeps
// its original internal id and created_at.
func (s *InMemoryInvoices) Upsert(ctx context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.invoices[inv.ExternalInvoiceID]; ok {
		existing.ExternalChargeID = inv.ExternalChargeID
		existing.TotalCents = inv.TotalCents
		existing.InvoiceDate = inv.InvoiceDate
		existing.UpdatedAt = inv.UpdatedAt
		return nil
	}
	clone := *inv
	s.invoices[inv.ExternalInvoiceID] = &clone
	return nil
}

func (s *InMemoryInvoices) FindByExternalID(ctx context.Context, externalInvoiceID string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[externalInvoiceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *inv
	return &clone, nil
}
