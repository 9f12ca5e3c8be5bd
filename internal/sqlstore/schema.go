package sqlstore

// schema is valid for both SQLite and PostgreSQL. Child rows are removed
// explicitly on delete, so foreign key enforcement is not required.
const schema = `
CREATE TABLE IF NOT EXISTS applications (
    app_id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL,
    contact_info TEXT NOT NULL,
    user_account TEXT NOT NULL,
    admin_account TEXT NOT NULL,
    flags BIGINT NOT NULL,
    field_count_hint INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fields (
    app_id TEXT NOT NULL REFERENCES applications(app_id),
    ordinal INTEGER NOT NULL,
    field_key TEXT NOT NULL,
    field_key_folded TEXT NOT NULL,
    flags INTEGER NOT NULL,
    PRIMARY KEY (app_id, ordinal),
    UNIQUE (app_id, field_key_folded)
);

CREATE TABLE IF NOT EXISTS config_sets (
    app_id TEXT NOT NULL REFERENCES applications(app_id),
    identifier TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (app_id, identifier)
);

CREATE TABLE IF NOT EXISTS config_values (
    app_id TEXT NOT NULL REFERENCES applications(app_id),
    identifier TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (app_id, identifier, ordinal)
);
`

// Queries use ? placeholders and are rebound per dialect.
const (
	qLookupApp = `SELECT app_id, flags FROM applications WHERE name = ?`

	qInsertApp = `INSERT INTO applications (app_id, name, description, contact_info, user_account, admin_account, flags, field_count_hint, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	qAppInfo = `SELECT a.name, a.description, a.contact_info, a.user_account, a.admin_account, a.flags, (SELECT COUNT(*) FROM fields f WHERE f.app_id = a.app_id) FROM applications a WHERE a.name = ?`

	qUpdateFlags = `UPDATE applications SET flags = ? WHERE app_id = ?`

	qFieldExists = `SELECT COUNT(*) FROM fields WHERE app_id = ? AND field_key_folded = ?`

	qNextOrdinal = `SELECT COALESCE(MAX(ordinal), -1) + 1 FROM fields WHERE app_id = ?`

	qInsertField = `INSERT INTO fields (app_id, ordinal, field_key, field_key_folded, flags) VALUES (?, ?, ?, ?, ?)`

	qListFields = `SELECT ordinal, field_key_folded FROM fields WHERE app_id = ? ORDER BY ordinal`

	qDeleteValues = `DELETE FROM config_values WHERE app_id = ? AND identifier = ?`

	qInsertValue = `INSERT INTO config_values (app_id, identifier, ordinal, value) VALUES (?, ?, ?, ?)`

	qDeleteSet = `DELETE FROM config_sets WHERE app_id = ? AND identifier = ?`

	qInsertSet = `INSERT INTO config_sets (app_id, identifier, updated_at) VALUES (?, ?, ?)`

	qSetExists = `SELECT COUNT(*) FROM config_sets WHERE app_id = ? AND identifier = ?`

	qReadValues = `SELECT f.field_key, f.flags, COALESCE(v.value, '') FROM fields f LEFT JOIN config_values v ON v.app_id = f.app_id AND v.ordinal = f.ordinal AND v.identifier = ? WHERE f.app_id = ? ORDER BY f.ordinal`

	qEnumerate = `SELECT name, description, contact_info, flags FROM applications ORDER BY app_id`

	qDeleteAllValues = `DELETE FROM config_values WHERE app_id = ?`
	qDeleteAllSets   = `DELETE FROM config_sets WHERE app_id = ?`
	qDeleteFields    = `DELETE FROM fields WHERE app_id = ?`
	qDeleteApp       = `DELETE FROM applications WHERE app_id = ?`
)
