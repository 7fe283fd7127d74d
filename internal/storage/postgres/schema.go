package postgres

import (
	"context"

	"github.com/mythic3011/AED-Api/pkg/e"
)

// schemaDDL is idempotent; geo_point is kept alongside the raw
// lat/lng columns so the GiST index serves every distance query.
const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS aeds (
	id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name text NOT NULL,
	address text NOT NULL DEFAULT '',
	location_detail text NOT NULL DEFAULT '',
	latitude double precision NOT NULL,
	longitude double precision NOT NULL,
	public_use boolean NOT NULL DEFAULT false,
	allowed_operators text NOT NULL DEFAULT '',
	access_persons text NOT NULL DEFAULT '',
	category text NOT NULL DEFAULT '',
	service_hours text NOT NULL DEFAULT '',
	brand text NOT NULL DEFAULT '',
	model text NOT NULL DEFAULT '',
	remark text NOT NULL DEFAULT '',
	is_flagged boolean NOT NULL DEFAULT false,
	flag_reason text,
	flagged_at timestamptz,
	geo_point geometry(Point, 4326) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_aeds_geo_point ON aeds USING GIST (geo_point);

CREATE TABLE IF NOT EXISTS reports (
	id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	aed_id bigint NOT NULL REFERENCES aeds (id) ON DELETE CASCADE,
	report_type text NOT NULL,
	description text NOT NULL,
	reporter_name text,
	reporter_email text,
	reporter_phone text,
	status text NOT NULL DEFAULT 'pending',
	created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reports_aed_id ON reports (aed_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status);
`

// EnsureSchema creates the tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		return e.Wrap("storage.pg.EnsureSchema", err)
	}
	return nil
}
