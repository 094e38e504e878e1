package main

import (
	"database/sql"

	childstore "github.com/mlongerich/DonationTracker-sub003/internal/child/store"
	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	donorservice "github.com/mlongerich/DonationTracker-sub003/internal/donor/service"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/lifecycle"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
)

// The composite interfaces below union the per-service store contracts so
// one wiring path serves both the Postgres and in-memory flavors.

type donorStore interface {
	donorservice.DonorStore
	lifecycle.DonorStore
}

type childStore interface {
	sponsorshipservice.ChildStore
	lifecycle.ChildStore
}

type projectStore interface {
	sponsorshipservice.ProjectStore
	donationservice.ProjectStore
	lifecycle.ProjectStore
	projectstore.GeneralFund
}

type sponsorshipStore interface {
	sponsorshipservice.SponsorshipStore
	lifecycle.SponsorshipGuard
	donorservice.SponsorshipReassigner
}

type donationStore interface {
	donationservice.DonationStore
	lifecycle.DonationGuard
	donorservice.Reassigner
}

type stores struct {
	donors       donorStore
	children     childStore
	projects     projectStore
	sponsorships sponsorshipStore
	donations    donationStore
	invoices     donationservice.InvoiceStore
	tx           storage.Tx
}

func newPostgresStores(db *sql.DB) stores {
	return stores{
		donors:       donorstore.NewPostgres(db),
		children:     childstore.NewPostgres(db),
		projects:     projectstore.NewPostgres(db),
		sponsorships: sponsorshipstore.NewPostgres(db),
		donations:    donationstore.NewPostgres(db),
		invoices:     donationstore.NewPostgresInvoices(db),
		tx:           storage.NewSQLTx(db),
	}
}

func newMemoryStores() stores {
	return stores{
		donors:       donorstore.NewInMemory(),
		children:     childstore.NewInMemory(),
		projects:     projectstore.NewInMemory(),
		sponsorships: sponsorshipstore.NewInMemory(),
		donations:    donationstore.NewInMemory(),
		invoices:     donationstore.NewInMemoryInvoices(),
		tx:           storage.NewMemoryTx(),
	}
}
