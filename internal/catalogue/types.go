package catalogue

import "time"

// Link is a name record: a client-facing name bound to a Source.
type Link struct {
	ID       string
	Name     string
	Ext      string
	SourceID string
}

// Source is a content record: one physical, content-addressed blob that may
// be referenced by any number of live links.
type Source struct {
	ID         string
	Hash256    string
	Compressed bool
	Size       int64
	Count      int64
	CreateAt   time.Time
	UpdateAt   time.Time
}
