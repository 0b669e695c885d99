// Package schema holds the LocaleDB DDL. Every statement is idempotent so
// Create can run against an existing database.
package schema

import (
	"context"
	"fmt"

	"github.com/momacs/localedb/internal/core"
)

// Step is one schema's DDL.
type Step struct {
	Name string
	SQL  string
}

// Steps lists the schemas in dependency order: main first, since every
// other schema references main.locale.
var Steps = []Step{
	{"extensions", extensionsSQL},
	{"main", mainSQL},
	{"dis", disSQL},
	{"geo", geoSQL},
	{"npi", npiSQL},
	{"pop", popSQL},
	{"vax", vaxSQL},
	{"health", healthSQL},
	{"weather", weatherSQL},
	{"mobility", mobilitySQL},
}

// Create executes every step in order. Callers wanting all-or-nothing
// pass a transaction.
func Create(ctx context.Context, db core.DBTX) error {
	for _, s := range Steps {
		if _, err := db.Exec(ctx, s.SQL); err != nil {
			return fmt.Errorf("create schema %s: %w", s.Name, err)
		}
	}
	return nil
}

const extensionsSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;
`

const mainSQL = `
CREATE SCHEMA IF NOT EXISTS main;

CREATE TABLE IF NOT EXISTS main.locale (
    id      BIGINT PRIMARY KEY,
    iso2    TEXT,
    iso3    TEXT,
    iso_num INTEGER,
    fips    TEXT,
    admin0  TEXT NOT NULL,
    admin1  TEXT,
    admin2  TEXT,
    lat     DOUBLE PRECISION,
    long    DOUBLE PRECISION,
    pop     BIGINT,
    CONSTRAINT locale_admin_uq UNIQUE NULLS NOT DISTINCT (admin0, admin1, admin2)
);

CREATE INDEX IF NOT EXISTS locale_fips_idx ON main.locale (fips);
CREATE INDEX IF NOT EXISTS locale_admin1_lower_idx ON main.locale (admin0, lower(admin1));
`

const disSQL = `
CREATE SCHEMA IF NOT EXISTS dis;

CREATE TABLE IF NOT EXISTS dis.disease (
    id   SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dis.dyn (
    disease_id INTEGER NOT NULL REFERENCES dis.disease (id) ON DELETE CASCADE,
    locale_id  BIGINT  NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    day        DATE    NOT NULL,
    day_i      INTEGER NOT NULL,
    n_conf     INTEGER,
    n_dead     INTEGER,
    n_rec      INTEGER,
    PRIMARY KEY (disease_id, locale_id, day)
);
`

const geoSQL = `
CREATE SCHEMA IF NOT EXISTS geo;
`

const npiSQL = `
CREATE SCHEMA IF NOT EXISTS npi;

CREATE TABLE IF NOT EXISTS npi.type (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS npi.npi (
    id             SERIAL PRIMARY KEY,
    disease_id     INTEGER REFERENCES dis.disease (id) ON DELETE CASCADE,
    locale_id      BIGINT  NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    type_id        INTEGER NOT NULL REFERENCES npi.type (id) DEFERRABLE INITIALLY IMMEDIATE,
    begin_date     DATE NOT NULL,
    end_date       DATE,
    begin_citation TEXT,
    begin_note     TEXT,
    end_citation   TEXT,
    end_note       TEXT
);

CREATE INDEX IF NOT EXISTS npi_locale_idx ON npi.npi (locale_id);
`

const popSQL = `
CREATE SCHEMA IF NOT EXISTS pop;

CREATE TABLE IF NOT EXISTS pop.school (
    st_fips TEXT   NOT NULL,
    id      BIGINT NOT NULL,
    stco    TEXT,
    lat     DOUBLE PRECISION,
    long    DOUBLE PRECISION,
    st_id   BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    co_id   BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    coords  GEOMETRY(Point, 4269),
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.hospital (
    st_fips       TEXT   NOT NULL,
    id            BIGINT NOT NULL,
    worker_cnt    INTEGER,
    physician_cnt INTEGER,
    bed_cnt       INTEGER,
    lat           DOUBLE PRECISION,
    long          DOUBLE PRECISION,
    coords        GEOMETRY(Point, 4269),
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.household (
    st_fips  TEXT   NOT NULL,
    id       BIGINT NOT NULL,
    stcotrbg TEXT,
    race_id  INTEGER,
    income   INTEGER,
    lat      DOUBLE PRECISION,
    long     DOUBLE PRECISION,
    st_id    BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    co_id    BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    coords   GEOMETRY(Point, 4269),
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.gq (
    st_fips    TEXT   NOT NULL,
    id         BIGINT NOT NULL,
    type       TEXT,
    stcotrbg   TEXT,
    person_cnt INTEGER,
    lat        DOUBLE PRECISION,
    long       DOUBLE PRECISION,
    st_id      BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    co_id      BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    coords     GEOMETRY(Point, 4269),
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.workplace (
    st_fips TEXT   NOT NULL,
    id      BIGINT NOT NULL,
    lat     DOUBLE PRECISION,
    long    DOUBLE PRECISION,
    coords  GEOMETRY(Point, 4269),
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.person (
    st_fips      TEXT   NOT NULL,
    id           BIGINT NOT NULL,
    household_id BIGINT,
    age          SMALLINT,
    sex          CHAR(1),
    race_id      INTEGER,
    relate_id    INTEGER,
    school_id    BIGINT,
    workplace_id BIGINT,
    PRIMARY KEY (st_fips, id)
);

CREATE TABLE IF NOT EXISTS pop.gq_person (
    st_fips TEXT   NOT NULL,
    id      BIGINT NOT NULL,
    gq_id   BIGINT,
    age     SMALLINT,
    sex     CHAR(1),
    PRIMARY KEY (st_fips, id)
);

CREATE INDEX IF NOT EXISTS school_coords_idx    ON pop.school    USING GIST (coords);
CREATE INDEX IF NOT EXISTS hospital_coords_idx  ON pop.hospital  USING GIST (coords);
CREATE INDEX IF NOT EXISTS household_coords_idx ON pop.household USING GIST (coords);
CREATE INDEX IF NOT EXISTS gq_coords_idx        ON pop.gq        USING GIST (coords);
CREATE INDEX IF NOT EXISTS workplace_coords_idx ON pop.workplace USING GIST (coords);
`

const vaxSQL = `
CREATE SCHEMA IF NOT EXISTS vax;

CREATE TABLE IF NOT EXISTS vax.vax (
    locale_id   BIGINT  NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    vaccine     TEXT    NOT NULL,
    season      TEXT    NOT NULL,
    month       SMALLINT NOT NULL DEFAULT 0,
    dim_type    TEXT    NOT NULL,
    dim         TEXT    NOT NULL,
    coverage    NUMERIC,
    ci_low      NUMERIC,
    ci_high     NUMERIC,
    sample_size INTEGER,
    PRIMARY KEY (locale_id, vaccine, season, month, dim_type, dim)
);
`

const healthSQL = `
CREATE SCHEMA IF NOT EXISTS health;

CREATE TABLE IF NOT EXISTS health.measure (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS health.health (
    locale_id BIGINT   NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    year      SMALLINT NOT NULL,
    measure   TEXT     NOT NULL REFERENCES health.measure (code),
    value     NUMERIC,
    PRIMARY KEY (locale_id, year, measure)
);
`

const weatherSQL = `
CREATE SCHEMA IF NOT EXISTS weather;

CREATE TABLE IF NOT EXISTS weather.weather (
    locale_id BIGINT   NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    year      SMALLINT NOT NULL,
    month     SMALLINT NOT NULL,
    element   TEXT     NOT NULL,
    value     NUMERIC,
    PRIMARY KEY (locale_id, year, month, element)
);
`

const mobilitySQL = `
CREATE SCHEMA IF NOT EXISTS mobility;

CREATE TABLE IF NOT EXISTS mobility.mobility (
    locale_id   BIGINT NOT NULL REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    day         DATE   NOT NULL,
    retail      SMALLINT,
    grocery     SMALLINT,
    parks       SMALLINT,
    transit     SMALLINT,
    workplaces  SMALLINT,
    residential SMALLINT,
    PRIMARY KEY (locale_id, day)
);

CREATE TABLE IF NOT EXISTS mobility.airtraffic (
    ts              DATE NOT NULL,
    origin_code     TEXT NOT NULL,
    origin_city     TEXT,
    origin_state_abr TEXT,
    origin_admin2   TEXT,
    origin_fips     TEXT,
    origin_admin1   TEXT,
    origin_admin0   TEXT,
    origin_iso2     TEXT,
    dest_code       TEXT NOT NULL,
    dest_city       TEXT,
    dest_state_abr  TEXT,
    dest_admin2     TEXT,
    dest_fips       TEXT,
    dest_admin1     TEXT,
    dest_admin0     TEXT,
    dest_iso2       TEXT,
    distance        DOUBLE PRECISION,
    passengers      DOUBLE PRECISION NOT NULL,
    origin_locale   BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    dest_locale     BIGINT REFERENCES main.locale (id) DEFERRABLE INITIALLY IMMEDIATE,
    PRIMARY KEY (ts, origin_code, dest_code)
);
`
