package rwhois

import (
	"context"
	"testing"
)

// TestDeleteFlow exercises Add, then FindByIDAndUpdated/CheckDelete/
// CommitDelete against the same record, verifying it is no longer
// returned by a query afterward.
func TestDeleteFlow(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, PrimaryKey: true, Required: true, Index: IndexExact}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	anon := mustParse(t, "Name:Jane Doe\n---\n")
	rec, err := CheckAdd(context.Background(), anon, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd: %v", err)
	}
	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd: %v", err)
	}

	lookup := &AnonymousRecord{Pairs: []AVPair{{Name: "ID", Value: rec.ID}, {Name: "Updated", Value: rec.Updated}}}
	found, err := FindByIDAndUpdated(reg, class, lookup, Config{})
	if err != nil {
		t.Fatalf("FindByIDAndUpdated: %v", err)
	}

	if err := CheckDelete(context.Background(), found, class, nil, aa, nil, "", Config{}, false, nil); err != nil {
		t.Fatalf("CheckDelete: %v", err)
	}
	if err := CommitDelete(reg, class, found, true); err != nil {
		t.Fatalf("CommitDelete: %v", err)
	}

	if _, err := FindByIDAndUpdated(reg, class, lookup, Config{}); err != ErrNotFound {
		t.Errorf("FindByIDAndUpdated after delete = %v, want ErrNotFound", err)
	}
}

// TestFindByIDAndUpdatedRejectsStaleUpdated verifies that a supplied
// Updated value that no longer matches the live record fails instead of
// silently operating on the current version.
func TestFindByIDAndUpdatedRejectsStaleUpdated(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, PrimaryKey: true, Required: true, Index: IndexExact}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	anon := mustParse(t, "Name:Jane Doe\n---\n")
	rec, err := CheckAdd(context.Background(), anon, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd: %v", err)
	}
	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd: %v", err)
	}

	lookup := &AnonymousRecord{Pairs: []AVPair{{Name: "ID", Value: rec.ID}, {Name: "Updated", Value: "19990101000000000"}}}
	if _, err := FindByIDAndUpdated(reg, class, lookup, Config{}); err != ErrOutdatedObj {
		t.Errorf("FindByIDAndUpdated with stale Updated = %v, want ErrOutdatedObj", err)
	}
}
