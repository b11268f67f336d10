// Package catalogue is linastore's embedded relational record of links and
// sources: the durable name→content mapping the content store builds on.
package catalogue

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/linastore/linastore/internal/options"
	"github.com/linastore/linastore/internal/store/storeerr"
)

// Catalogue is durable, serial access to the link and source tables. All
// writes additionally serialize through mu: the content store's count
// arithmetic (increment/decrement/delete) is a read-modify-write sequence
// that SQLite's own per-statement locking does not make atomic across
// multiple statements.
type Catalogue struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) a sqlite-backed catalogue at path and
// ensures its schema exists.
func Open(path string, opts ...options.Option[*Catalogue]) (*Catalogue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "catalogue.Open", err)
	}

	// A file-backed SQLite connection pool with more than one writer
	// invites SQLITE_BUSY; one connection keeps it serialized at the
	// driver level too, on top of our own mutex.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storeerr.Wrap(storeerr.StoreFailed, "catalogue.Open", err)
	}

	c := &Catalogue{db: db}
	if err := options.Apply(c, opts...); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the underlying database handle.
func (c *Catalogue) Close() error {
	return c.db.Close()
}

// InsertLink assigns id as a new link row bound to sourceID.
func (c *Catalogue) InsertLink(id, name, ext, sourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const q = `INSERT INTO link (id, name, ext, source_id) VALUES (?, ?, ?, ?)`
	if _, err := c.db.Exec(q, id, name, ext, sourceID); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.InsertLink", err)
	}
	return nil
}

// GetLinksByName returns links matching name. If fuzzy is true, name is
// used as a SQL LIKE pattern as-is (the caller has already translated any
// wildcard syntax into `%`); otherwise it is an exact match.
func (c *Catalogue) GetLinksByName(name string, fuzzy bool) ([]Link, error) {
	if fuzzy {
		return c.queryLinks(`SELECT id, name, ext, source_id FROM link WHERE name LIKE ?`, name)
	}
	return c.queryLinks(`SELECT id, name, ext, source_id FROM link WHERE name = ?`, name)
}

// GetLinksByExt returns every link whose derived extension equals ext.
func (c *Catalogue) GetLinksByExt(ext string) ([]Link, error) {
	return c.queryLinks(`SELECT id, name, ext, source_id FROM link WHERE ext = ?`, ext)
}

// ListLinks returns up to limit links ordered by id; limit == 0 means
// unbounded.
func (c *Catalogue) ListLinks(limit int) ([]Link, error) {
	if limit <= 0 {
		return c.queryLinks(`SELECT id, name, ext, source_id FROM link ORDER BY id`)
	}
	return c.queryLinks(`SELECT id, name, ext, source_id FROM link ORDER BY id LIMIT ?`, limit)
}

func (c *Catalogue) queryLinks(query string, args ...any) ([]Link, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "catalogue.queryLinks", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.Name, &l.Ext, &l.SourceID); err != nil {
			return nil, storeerr.Wrap(storeerr.StoreFailed, "catalogue.queryLinks", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "catalogue.queryLinks", err)
	}

	return links, nil
}

// DeleteLink removes the link row with the given id.
func (c *Catalogue) DeleteLink(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM link WHERE id = ?`, id); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.DeleteLink", err)
	}
	return nil
}

// InsertSource creates a new source row with count = 1 and timestamps set
// to now.
func (c *Catalogue) InsertSource(id, hash256 string, compressed bool, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Unix()
	const q = `INSERT INTO source (id, hash256, compressed, size, count, create_at, update_at)
	           VALUES (?, ?, ?, ?, 1, ?, ?)`
	if _, err := c.db.Exec(q, id, hash256, boolToInt(compressed), size, now, now); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.InsertSource", err)
	}
	return nil
}

// GetSourceByID returns the source with the given id, or a NotFound error.
func (c *Catalogue) GetSourceByID(id string) (Source, error) {
	return c.queryOneSource(`SELECT id, hash256, compressed, size, count, create_at, update_at FROM source WHERE id = ?`, id)
}

// GetSourceByHash256 returns the source with the given content hash, or a
// NotFound error.
func (c *Catalogue) GetSourceByHash256(hash string) (Source, error) {
	return c.queryOneSource(`SELECT id, hash256, compressed, size, count, create_at, update_at FROM source WHERE hash256 = ?`, hash)
}

func (c *Catalogue) queryOneSource(query string, arg string) (Source, error) {
	row := c.db.QueryRow(query, arg)

	var s Source
	var compressed int
	var createAt, updateAt int64
	err := row.Scan(&s.ID, &s.Hash256, &compressed, &s.Size, &s.Count, &createAt, &updateAt)
	if err == sql.ErrNoRows {
		return Source{}, storeerr.New(storeerr.NotFound, "catalogue.queryOneSource")
	}
	if err != nil {
		return Source{}, storeerr.Wrap(storeerr.StoreFailed, "catalogue.queryOneSource", err)
	}

	s.Compressed = compressed != 0
	s.CreateAt = time.Unix(createAt, 0).UTC()
	s.UpdateAt = time.Unix(updateAt, 0).UTC()

	return s, nil
}

// UpdateSource overwrites every mutable field of the source with id,
// bumping update_at to now.
func (c *Catalogue) UpdateSource(id, hash256 string, compressed bool, size, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const q = `UPDATE source SET hash256 = ?, compressed = ?, size = ?, count = ?, update_at = ? WHERE id = ?`
	res, err := c.db.Exec(q, hash256, boolToInt(compressed), size, count, time.Now().UTC().Unix(), id)
	if err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.UpdateSource", err)
	}
	return checkRowAffected(res, "catalogue.UpdateSource")
}

// UpdateLinkSource repoints an existing link at a different source.
func (c *Catalogue) UpdateLinkSource(linkID, newSourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`UPDATE link SET source_id = ? WHERE id = ?`, newSourceID, linkID)
	if err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.UpdateLinkSource", err)
	}
	return checkRowAffected(res, "catalogue.UpdateLinkSource")
}

// DeleteSource removes the source row with the given id.
func (c *Catalogue) DeleteSource(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM source WHERE id = ?`, id); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "catalogue.DeleteSource", err)
	}
	return nil
}

func checkRowAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, op, err)
	}
	if n == 0 {
		return storeerr.New(storeerr.NotFound, op)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ToLikePattern translates the store's `*` wildcard syntax into SQL LIKE's
// `%`. It does not escape existing `%`/`_` in name, matching spec's
// "translate and go" wildcard semantics.
func ToLikePattern(pattern string) string {
	return strings.ReplaceAll(pattern, "*", "%")
}
