package postgres

// Schema is the DDL for every table the service touches. Applied by the
// e2e-setup tool and the integration test harness; statements are
// idempotent so re-running against an existing database is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	service_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	billing_amount_minor BIGINT NOT NULL,
	currency TEXT NOT NULL,
	discount_id UUID,
	last_verified_charge_id TEXT,
	last_payment_verified_at TIMESTAMPTZ,
	last_payment_status TEXT,
	cycle_start_at TIMESTAMPTZ,
	next_billing_at TIMESTAMPTZ,
	failed_charges INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_charge_ref ON subscriptions (last_verified_charge_id);

CREATE OR REPLACE FUNCTION subscriptions_guard_active() RETURNS trigger AS $fn$
BEGIN
	IF NEW.status = 'active' AND (
		NEW.last_verified_charge_id IS NULL OR
		NEW.last_payment_verified_at IS NULL OR
		UPPER(NEW.last_payment_status) IS DISTINCT FROM 'CAPTURED'
	) THEN
		RAISE EXCEPTION 'active subscription requires a verified CAPTURED charge';
	END IF;
	RETURN NEW;
END;
$fn$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS subscriptions_active_guard ON subscriptions;
CREATE TRIGGER subscriptions_active_guard
	BEFORE INSERT OR UPDATE ON subscriptions
	FOR EACH ROW EXECUTE FUNCTION subscriptions_guard_active();

CREATE TABLE IF NOT EXISTS processed_events (
	id UUID PRIMARY KEY,
	provider TEXT NOT NULL,
	provider_event_id TEXT,
	charge_id TEXT NOT NULL,
	claimed_status TEXT NOT NULL,
	amount_minor BIGINT NOT NULL,
	currency TEXT NOT NULL,
	raw_payload BYTEA,
	verified_payload BYTEA,
	outcome TEXT NOT NULL,
	error_detail TEXT,
	subscription_id TEXT,
	user_id TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT processed_events_claim UNIQUE (provider, charge_id, claimed_status)
);
CREATE INDEX IF NOT EXISTS idx_processed_events_outcome ON processed_events (outcome, created_at);

CREATE TABLE IF NOT EXISTS subscription_payments (
	id UUID PRIMARY KEY,
	charge_id TEXT NOT NULL UNIQUE,
	subscription_id TEXT NOT NULL,
	user_id TEXT,
	amount_minor BIGINT NOT NULL,
	currency TEXT NOT NULL,
	status TEXT NOT NULL,
	gateway_reference TEXT,
	payment_reference TEXT,
	paid_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS webhook_audit (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	charge_id TEXT NOT NULL,
	source_ip TEXT,
	signature_result TEXT NOT NULL,
	gateway_checked BOOLEAN NOT NULL DEFAULT FALSE,
	gateway_status TEXT,
	outcome TEXT NOT NULL,
	reason TEXT,
	subscription_id TEXT,
	user_id TEXT,
	payload_digest TEXT NOT NULL,
	raw_payload BYTEA,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_webhook_audit_charge ON webhook_audit (charge_id, id DESC);

CREATE TABLE IF NOT EXISTS discount_codes (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	percent_off INT NOT NULL,
	cycles_total INT NOT NULL,
	cycles_used INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS discount_redemptions (
	id UUID PRIMARY KEY,
	discount_id UUID NOT NULL,
	subscription_id TEXT NOT NULL,
	charge_id TEXT NOT NULL,
	redeemed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT discount_redemptions_once UNIQUE (discount_id, subscription_id)
);
`
