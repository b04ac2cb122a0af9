package testhelpers

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// warehouseFixtureStatements builds a miniature copy of the reporting
// schema: enough tables and rows to exercise entity extraction, DDL
// rendering, and query execution. Statements run one at a time because
// the pool uses the extended protocol.
var warehouseFixtureStatements = []string{
	`DROP TABLE IF EXISTS time_entry`,
	`DROP TABLE IF EXISTS employee`,
	`DROP TABLE IF EXISTS activity`,
	`DROP TABLE IF EXISTS location`,

	`CREATE TABLE location (
		id BIGINT PRIMARY KEY,
		code VARCHAR(10),
		name TEXT NOT NULL
	)`,
	`CREATE TABLE employee (
		id BIGINT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		department TEXT,
		job_title TEXT,
		active TEXT,
		hire_date DATE,
		location_id BIGINT REFERENCES location(id)
	)`,
	`CREATE TABLE activity (
		id BIGINT PRIMARY KEY,
		description TEXT,
		code VARCHAR(20),
		type TEXT,
		active BOOLEAN
	)`,
	`CREATE TABLE time_entry (
		id BIGINT PRIMARY KEY,
		user_id BIGINT,
		activity_id BIGINT REFERENCES activity(id),
		location_id BIGINT REFERENCES location(id),
		start_date DATE,
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		status INT
	)`,

	`INSERT INTO location (id, code, name) VALUES
		(1, '061', 'Central High School'),
		(2, '045', 'Lincoln Elementary'),
		(3, '112', 'District Office')`,

	// Employee 4 has a blank first name and must be skipped by extraction.
	`INSERT INTO employee (id, first_name, last_name, department, job_title, active, hire_date, location_id) VALUES
		(1, 'Rosalinda', 'Rodriguez', 'Special Education', 'Teacher', 'true', '2015-08-15', 1),
		(2, 'John', 'Smith', 'Athletics', 'Coach', 'true', '2019-01-07', 2),
		(3, 'Maria', 'Gonzalez', 'Special Education', 'Aide', 'true', '2021-09-01', 1),
		(4, ' ', 'Vacant', NULL, NULL, 'false', NULL, 3)`,

	`INSERT INTO activity (id, description, code, type, active) VALUES
		(1, 'REGULAR', 'REG', 'REGULAR', true),
		(2, 'SUMMER SCHOOL', 'SUM', 'EXTRA', true),
		(3, 'DETENTION COVERAGE', 'DET', 'EXTRA', false)`,

	`INSERT INTO time_entry (id, user_id, activity_id, location_id, start_date, start_time, end_time, status) VALUES
		(1, 1, 1, 1, '2024-03-01', '2024-03-01 08:00:00', '2024-03-01 16:00:00', 2),
		(2, 2, 2, 2, '2024-07-01', '2024-07-01 09:00:00', '2024-07-01 12:00:00', 0),
		(3, 3, 1, 1, '2024-03-04', '2024-03-04 08:00:00', '2024-03-04 16:00:00', 4)`,
}

// SeedWarehouse (re)creates the warehouse fixture tables in the test
// database. Safe to call from multiple tests; each call starts fresh.
func SeedWarehouse(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	for _, stmt := range warehouseFixtureStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed warehouse fixture: %v\nstatement: %s", err, stmt)
		}
	}
}
