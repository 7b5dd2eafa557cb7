package rwhois

import (
	"context"
	"testing"
)

// TestModifyFlow verifies a full Add followed by a Modify changing a
// non-key attribute: the old record is gone, the new one is findable by
// the same ID with a fresh Updated stamp.
func TestModifyFlow(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, PrimaryKey: true, Required: true, Index: IndexExact}
	noteAttr := &AttributeDef{Name: "Note", LocalID: 2}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr, noteAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	anon := mustParse(t, "Name:Jane Doe\nNote:first\n---\n")
	rec, err := CheckAdd(context.Background(), anon, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd: %v", err)
	}
	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd: %v", err)
	}

	oldAnon := &AnonymousRecord{Pairs: []AVPair{{Name: "ID", Value: rec.ID}, {Name: "Updated", Value: rec.Updated}}}
	newAnon := mustParse(t, "Name:Jane Doe\nNote:second\n---\n")

	newRec, oldRec, err := CheckModify(context.Background(), newAnon, oldAnon, class, aa, reg, nil, nil, "", Config{}, false, nil)
	if err != nil {
		t.Fatalf("CheckModify: %v", err)
	}
	if oldRec.ID != rec.ID {
		t.Fatalf("CheckModify resolved the wrong old record: %q", oldRec.ID)
	}

	if err := CommitModify(reg, class, newRec, oldRec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitModify: %v", err)
	}

	if newRec.ID != rec.ID {
		t.Errorf("modified record changed ID: got %q, want %q", newRec.ID, rec.ID)
	}
	if newRec.Updated == rec.Updated {
		t.Errorf("modified record did not get a fresh Updated stamp")
	}

	lookup := &AnonymousRecord{Pairs: []AVPair{{Name: "ID", Value: rec.ID}, {Name: "Updated", Value: rec.Updated}}}
	if _, err := FindByIDAndUpdated(reg, class, lookup, Config{}); err != ErrOutdatedObj {
		t.Errorf("old Updated stamp still resolves after modify: err = %v", err)
	}

	current := &AnonymousRecord{Pairs: []AVPair{{Name: "ID", Value: rec.ID}}}
	found, err := FindByIDAndUpdated(reg, class, current, Config{})
	if err != nil {
		t.Fatalf("FindByIDAndUpdated after modify: %v", err)
	}
	note, _ := found.Get(noteAttr)
	if note != "second" {
		t.Errorf("modified record Note = %q, want %q", note, "second")
	}
}
