package catalogue

const schema = `
CREATE TABLE IF NOT EXISTS link (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	ext       TEXT NOT NULL,
	source_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_link_name ON link(name);
CREATE INDEX IF NOT EXISTS idx_link_ext  ON link(ext);

CREATE TABLE IF NOT EXISTS source (
	id         TEXT PRIMARY KEY,
	hash256    TEXT NOT NULL,
	compressed INTEGER NOT NULL,
	size       INTEGER NOT NULL,
	count      INTEGER NOT NULL,
	create_at  INTEGER NOT NULL,
	update_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_hash256 ON source(hash256);
CREATE INDEX IF NOT EXISTS idx_source_size    ON source(size);
`
