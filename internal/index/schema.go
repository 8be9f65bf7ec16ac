package index

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY,
	path TEXT UNIQUE NOT NULL,
	title TEXT,
	hash TEXT,
	mtime_unix INTEGER,
	size INTEGER,
	updated_at INTEGER
);

CREATE TABLE IF NOT EXISTS names (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	UNIQUE(name, kind)
);

CREATE TABLE IF NOT EXISTS file_names (
	file_id INTEGER NOT NULL,
	name_id INTEGER NOT NULL,
	PRIMARY KEY(file_id, name_id)
);

CREATE INDEX IF NOT EXISTS file_names_by_name ON file_names(name_id);
`
