package storage

// Schema is the relational schema the Postgres stores expect. The partial
// unique indexes are load-bearing: donors_email_live_key enforces email
// uniqueness among non-archived donors only, sponsorships_active_key
// serializes the allocator's check-then-act so concurrent identical requests
// converge on one sponsorship, and donations_subscription_child_key is the
// hard duplicate guard for kept donations.
const Schema = `
CREATE TABLE IF NOT EXISTS donors (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL,
    phone        TEXT NOT NULL DEFAULT '',
    street1      TEXT NOT NULL DEFAULT '',
    street2      TEXT NOT NULL DEFAULT '',
    city         TEXT NOT NULL DEFAULT '',
    state        TEXT NOT NULL DEFAULT '',
    zip_code     TEXT NOT NULL DEFAULT '',
    country      TEXT NOT NULL DEFAULT '',
    archived_at  TIMESTAMPTZ,
    merged_into  UUID REFERENCES donors(id),
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS donors_email_live_key
    ON donors (LOWER(email)) WHERE archived_at IS NULL;

CREATE TABLE IF NOT EXISTS children (
    id           UUID PRIMARY KEY,
    name         TEXT NOT NULL,
    gender       TEXT,
    archived_at  TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    id           UUID PRIMARY KEY,
    title        TEXT NOT NULL,
    type         TEXT NOT NULL CHECK (type IN ('general', 'campaign', 'sponsorship')),
    system       BOOLEAN NOT NULL DEFAULT FALSE,
    archived_at  TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sponsorships (
    id                    UUID PRIMARY KEY,
    donor_id              UUID NOT NULL REFERENCES donors(id),
    child_id              UUID NOT NULL REFERENCES children(id),
    project_id            UUID NOT NULL REFERENCES projects(id),
    monthly_amount_cents  BIGINT NOT NULL CHECK (monthly_amount_cents > 0),
    start_date            DATE NOT NULL,
    end_date              DATE,
    created_at            TIMESTAMPTZ NOT NULL,
    updated_at            TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS sponsorships_active_key
    ON sponsorships (donor_id, child_id, monthly_amount_cents) WHERE end_date IS NULL;

CREATE TABLE IF NOT EXISTS donations (
    id                        UUID PRIMARY KEY,
    donor_id                  UUID NOT NULL REFERENCES donors(id),
    project_id                UUID NOT NULL REFERENCES projects(id),
    sponsorship_id            UUID REFERENCES sponsorships(id),
    child_id                  UUID REFERENCES children(id),
    amount_cents              BIGINT NOT NULL CHECK (amount_cents > 0),
    date                      DATE NOT NULL,
    payment_method            TEXT NOT NULL,
    status                    TEXT NOT NULL,
    external_subscription_id  TEXT,
    external_invoice_id       TEXT,
    external_charge_id        TEXT,
    duplicate_subscription    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at                TIMESTAMPTZ NOT NULL,
    updated_at                TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS donations_subscription_child_key
    ON donations (external_subscription_id, child_id)
    WHERE external_subscription_id IS NOT NULL AND child_id IS NOT NULL;

CREATE UNIQUE INDEX IF NOT EXISTS donations_invoice_key
    ON donations (external_invoice_id) WHERE external_invoice_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS invoices (
    id                   UUID PRIMARY KEY,
    external_invoice_id  TEXT NOT NULL UNIQUE,
    external_charge_id   TEXT NOT NULL DEFAULT '',
    total_cents          BIGINT NOT NULL,
    invoice_date         DATE NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);
`
