// Package store is the content store: the arbiter of all object state,
// sitting on top of the catalogue (name/content bookkeeping) and the codec
// (blob compression).
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linastore/linastore/internal/catalogue"
	"github.com/linastore/linastore/internal/codec"
	"github.com/linastore/linastore/internal/contenthash"
	"github.com/linastore/linastore/internal/idgen"
	"github.com/linastore/linastore/internal/options"
	"github.com/linastore/linastore/internal/store/storeerr"
)

// Store owns the data directory and mediates every put/get/list/delete
// against the catalogue, deriving on-disk blob paths from source ids.
type Store struct {
	cat     *catalogue.Catalogue
	cdc     *codec.Codec
	dataDir string
}

// New creates a Store rooted at dataDir, which must already exist.
func New(dataDir string, cat *catalogue.Catalogue, cdc *codec.Codec, opts ...options.Option[*Store]) (*Store, error) {
	s := &Store{cat: cat, cdc: cdc, dataDir: dataDir}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}
	return s, nil
}

// deriveExt implements spec's ext rule: lower-cased filepath.Ext with the
// leading dot stripped, "" for a name with no extension.
func deriveExt(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func (s *Store) blobPath(sourceID string) string {
	return filepath.Join(s.dataDir, idgen.FanoutPath(sourceID))
}

// Put stores bytes under name, following the cover/no-cover and
// dedup-by-hash rules.
func (s *Store) Put(name string, data []byte, cover, compressed bool) error {
	if name == "" {
		return storeerr.New(storeerr.InvalidName, "store.Put")
	}

	hash := contenthash.Sum(data)
	ext := deriveExt(name)

	existing, err := s.cat.GetLinksByName(name, false)
	if err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	if len(existing) > 0 {
		return s.putExistingLink(existing[0], data, hash, cover, compressed)
	}

	return s.putNewLink(name, ext, data, hash, compressed)
}

func (s *Store) putExistingLink(link catalogue.Link, data []byte, hash string, cover, compressed bool) error {
	src, err := s.cat.GetSourceByID(link.SourceID)
	if err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	if hash == src.Hash256 && compressed == src.Compressed {
		return nil
	}

	if cover {
		return s.overwriteSource(src, data, hash, compressed)
	}

	return s.separateIntoNewSource(link, src, data, hash, compressed)
}

// overwriteSource replaces src's content in place (cover=true semantics):
// same source row, possibly shared by other live links, its blob rewritten.
func (s *Store) overwriteSource(src catalogue.Source, data []byte, hash string, compressed bool) error {
	if err := s.writeBlob(src.ID, data, compressed); err != nil {
		return err
	}

	if err := s.cat.UpdateSource(src.ID, hash, compressed, int64(len(data)), src.Count); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	return nil
}

// separateIntoNewSource implements cover=false semantics: link is
// repointed at a brand-new source carrying data, and the old source is
// released (decremented, or deleted if that was its last reference) rather
// than mutated in place, so other links still pointing at it are unaffected.
func (s *Store) separateIntoNewSource(link catalogue.Link, oldSrc catalogue.Source, data []byte, hash string, compressed bool) error {
	sourceID, err := idgen.New()
	if err != nil {
		return storeerr.Wrap(storeerr.Internal, "store.Put", err)
	}

	if err := s.writeBlob(sourceID, data, compressed); err != nil {
		return err
	}

	if err := s.cat.InsertSource(sourceID, hash, compressed, int64(len(data))); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	if err := s.cat.UpdateLinkSource(link.ID, sourceID); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	return s.release(oldSrc, oldSrc.Count-1)
}

func (s *Store) putNewLink(name, ext string, data []byte, hash string, compressed bool) error {
	if existing, err := s.cat.GetSourceByHash256(hash); err == nil {
		linkID, err := idgen.New()
		if err != nil {
			return storeerr.Wrap(storeerr.Internal, "store.Put", err)
		}
		if err := s.cat.InsertLink(linkID, name, ext, existing.ID); err != nil {
			return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
		}
		return s.cat.UpdateSource(existing.ID, existing.Hash256, existing.Compressed, existing.Size, existing.Count+1)
	} else if storeerr.CodeOf(err) != storeerr.NotFound {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	sourceID, err := idgen.New()
	if err != nil {
		return storeerr.Wrap(storeerr.Internal, "store.Put", err)
	}

	if err := s.writeBlob(sourceID, data, compressed); err != nil {
		return err
	}

	if err := s.cat.InsertSource(sourceID, hash, compressed, int64(len(data))); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	linkID, err := idgen.New()
	if err != nil {
		return storeerr.Wrap(storeerr.Internal, "store.Put", err)
	}

	if err := s.cat.InsertLink(linkID, name, ext, sourceID); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Put", err)
	}

	return nil
}

func (s *Store) writeBlob(sourceID string, data []byte, compressed bool) error {
	path := s.blobPath(sourceID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.writeBlob", err)
	}

	payload := data
	if compressed {
		encoded, err := s.cdc.Encode(data)
		if err != nil {
			return storeerr.Wrap(storeerr.StoreFailed, "store.writeBlob", err)
		}
		payload = encoded
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.writeBlob", err)
	}

	return nil
}

// Get resolves name's first link to its source, reads the blob, and decodes
// it if compressed.
func (s *Store) Get(name string) ([]byte, error) {
	links, err := s.cat.GetLinksByName(name, false)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "store.Get", err)
	}
	if len(links) == 0 {
		return nil, storeerr.New(storeerr.NotFound, "store.Get")
	}

	src, err := s.cat.GetSourceByID(links[0].SourceID)
	if err != nil {
		return nil, storeerr.New(storeerr.NotFound, "store.Get")
	}

	raw, err := os.ReadFile(s.blobPath(src.ID))
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "store.Get", err)
	}

	if !src.Compressed {
		return raw, nil
	}

	decoded, err := s.cdc.Decode(raw, int(src.Size))
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "store.Get", err)
	}

	return decoded, nil
}

// List resolves pattern to a set of links following the same routing rules
// as spec'd: extension lookup, unbounded/bounded listing, fuzzy match, or
// exact match.
func (s *Store) List(pattern string, n int, isExt, wildcardsEnabled bool) ([]catalogue.Link, error) {
	if isExt {
		links, err := s.cat.GetLinksByExt(pattern)
		if err != nil {
			return nil, storeerr.Wrap(storeerr.StoreFailed, "store.List", err)
		}
		return links, nil
	}

	if wildcardsEnabled && (pattern == "" || pattern == "*") {
		links, err := s.cat.ListLinks(n)
		if err != nil {
			return nil, storeerr.Wrap(storeerr.StoreFailed, "store.List", err)
		}
		return links, nil
	}

	if wildcardsEnabled && strings.Contains(pattern, "*") {
		links, err := s.cat.GetLinksByName(catalogue.ToLikePattern(pattern), true)
		if err != nil {
			return nil, storeerr.Wrap(storeerr.StoreFailed, "store.List", err)
		}
		return links, nil
	}

	links, err := s.cat.GetLinksByName(pattern, false)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.StoreFailed, "store.List", err)
	}
	return links, nil
}

// Delete resolves pattern with List's rules (ignoring its n/limit) and
// removes every matched link, releasing each one's source reference.
func (s *Store) Delete(pattern string, wildcardsEnabled bool) error {
	links, err := s.List(pattern, 0, false, wildcardsEnabled)
	if err != nil {
		return err
	}

	for _, link := range links {
		if err := s.deleteOne(link); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) deleteOne(link catalogue.Link) error {
	src, err := s.cat.GetSourceByID(link.SourceID)
	sourceGone := storeerr.CodeOf(err) == storeerr.NotFound
	if err != nil && !sourceGone {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Delete", err)
	}

	if err := s.cat.DeleteLink(link.ID); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.Delete", err)
	}

	if sourceGone {
		// Source row already gone; nothing left to release.
		return nil
	}

	return s.release(src, src.Count-1)
}

// release persists the decremented count if newCount is still positive,
// otherwise deletes the source row and unlinks its blob. A missing blob
// file on the delete path is tolerated: the catalogue is authoritative for
// existence, per spec.
func (s *Store) release(src catalogue.Source, newCount int64) error {
	if newCount > 0 {
		if err := s.cat.UpdateSource(src.ID, src.Hash256, src.Compressed, src.Size, newCount); err != nil {
			return storeerr.Wrap(storeerr.StoreFailed, "store.release", err)
		}
		return nil
	}

	if err := s.cat.DeleteSource(src.ID); err != nil {
		return storeerr.Wrap(storeerr.StoreFailed, "store.release", err)
	}

	if err := os.Remove(s.blobPath(src.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storeerr.Wrap(storeerr.StoreFailed, "store.release", fmt.Errorf("unlink blob: %w", err))
	}

	return nil
}
