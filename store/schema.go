package store

import "database/sql"

// Column names follow the historical report database so an existing
// file can be opened in place.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS job_reports (
		job_indx         INTEGER PRIMARY KEY AUTOINCREMENT,
		date             TEXT,
		Object_Tag       TEXT,
		job_description  TEXT,
		keywords         TEXT,
		department       TEXT,
		wo_number        TEXT,
		permit_number    TEXT,
		status           TEXT,
		action_list      INTEGER DEFAULT 0,
		job_type         TEXT,
		employee         TEXT,
		performed_action TEXT,
		route            TEXT,
		registered_by    TEXT,
		registered_date  TEXT,
		anomaly          INTEGER DEFAULT 0,
		actual_start     TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		Object_Tag       TEXT PRIMARY KEY,
		Object_Desc      TEXT,
		Category_Desc    TEXT,
		Criticality_Desc TEXT,
		Object_Note      TEXT,
		MIHLevel_Desc    TEXT,
		Unit_Code        TEXT,
		Object_Type      TEXT,
		Train            TEXT,
		Father_Tag       TEXT,
		Long_Tag         TEXT,
		Registered       TEXT,
		Modified         TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		Route_ID        INTEGER PRIMARY KEY AUTOINCREMENT,
		PMRoute_Code    TEXT,
		PMRoute_Desc    TEXT,
		Object_Tag      TEXT,
		StandardJob_Desc TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		username         TEXT PRIMARY KEY,
		password_hash    TEXT NOT NULL,
		name             TEXT,
		department       TEXT,
		personnel_number TEXT,
		is_admin         INTEGER DEFAULT 0,
		user_filter      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_reports_tag_date ON job_reports (Object_Tag, date)`,
	`CREATE INDEX IF NOT EXISTS idx_job_reports_date ON job_reports (date)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_code ON routes (PMRoute_Code)`,
}

func initSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
