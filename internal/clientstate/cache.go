// Package clientstate is the reconciliation helper for clients that mutate
// their local reservation list optimistically before the server round-trip
// completes. Every operation is a pure function of (cache, input) -> cache;
// nothing here talks to the network, and staged writes are fully discardable.
package clientstate

import (
	"sort"

	"github.com/RektefeMaster/parts-backend/internal/model"
)

// Cache is an immutable snapshot of reservations keyed by id. Mutating
// operations return a new Cache and leave the receiver untouched.
type Cache struct {
	records map[string]model.Reservation
}

func New(records ...model.Reservation) Cache {
	c := Cache{records: make(map[string]model.Reservation, len(records))}
	for _, r := range records {
		c.records[r.ID] = r
	}
	return c
}

func (c Cache) clone() Cache {
	out := Cache{records: make(map[string]model.Reservation, len(c.records))}
	for id, r := range c.records {
		out.records[id] = r
	}
	return out
}

func (c Cache) Len() int {
	return len(c.records)
}

func (c Cache) Get(id string) (model.Reservation, bool) {
	r, ok := c.records[id]
	return r, ok
}

// Patch is the undo record for one staged optimistic mutation.
type Patch struct {
	id   string
	prev *model.Reservation
}

// Stage applies an optimistic mutation before the server has answered and
// returns the patch that Revert needs to roll it back.
func (c Cache) Stage(r model.Reservation) (Cache, Patch) {
	p := Patch{id: r.ID}
	if prev, ok := c.records[r.ID]; ok {
		cp := prev
		p.prev = &cp
	}
	out := c.clone()
	out.records[r.ID] = r
	return out, p
}

// Revert undoes a staged mutation after the server rejected it; the record
// returns to its pre-stage state (or disappears if it did not exist).
func (c Cache) Revert(p Patch) Cache {
	out := c.clone()
	if p.prev == nil {
		delete(out.records, p.id)
	} else {
		out.records[p.id] = *p.prev
	}
	return out
}

// MergeOne folds a single authoritative server record in; the server copy
// replaces whatever the client predicted.
func (c Cache) MergeOne(r model.Reservation) Cache {
	out := c.clone()
	out.records[r.ID] = r
	return out
}

// Merge reconciles a server response into the cache, merge-by-id with the
// server winning. Records absent from the response are kept: list responses
// are usually filtered and silence is not deletion.
func (c Cache) Merge(server []model.Reservation) Cache {
	out := c.clone()
	for _, r := range server {
		out.records[r.ID] = r
	}
	return out
}

// List returns the cached reservations, newest first, optionally filtered by
// status. The filter sees staged optimistic transitions: a record staged out
// of pending no longer shows up in a pending view.
func (c Cache) List(statuses ...model.Status) []model.Reservation {
	out := make([]model.Reservation, 0, len(c.records))
	for _, r := range c.records {
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if r.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
