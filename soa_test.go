// SOA/identity generation tests.
package rwhois

import (
	"strings"
	"testing"
)

// TestGenerateIDUnique verifies that GenerateID produces distinct values
// across many calls within the same second. If the per-process sequence
// number weren't wired in, two records registered in the same second would
// collide on ID and the second Add would (incorrectly) look like a
// duplicate submission of the first.
func TestGenerateIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := GenerateID("TEST")
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
		if !strings.HasSuffix(id, ".TEST") {
			t.Errorf("id %q missing auth area suffix", id)
		}
	}
}

func TestGenerateUpdatedFormat(t *testing.T) {
	u := GenerateUpdated()
	if len(u) != 17 {
		t.Fatalf("Updated stamp %q has length %d, want 17", u, len(u))
	}
	if !strings.HasSuffix(u, "000") {
		t.Errorf("Updated stamp %q missing 000 suffix", u)
	}
}

func TestBumpSerialMonotonic(t *testing.T) {
	aa := &AuthorityArea{Name: "TEST", Serial: "20200101000000000"}

	aa.BumpSerial("20190101000000000")
	if aa.Serial != "20200101000000000" {
		t.Errorf("BumpSerial regressed serial to %q", aa.Serial)
	}

	aa.BumpSerial("20210101000000000")
	if aa.Serial != "20210101000000000" {
		t.Errorf("BumpSerial did not advance serial: got %q", aa.Serial)
	}
}

func TestSetIDAttrPreservesExisting(t *testing.T) {
	idAttr := &AttributeDef{Name: "ID", GlobalID: 1, Type: TypeID}
	rec := &Record{
		Class:    &Class{Attributes: []*AttributeDef{idAttr}},
		AuthArea: &AuthorityArea{Name: "TEST"},
		Pairs:    []RecordPair{{Attr: idAttr, Value: "existing-id.TEST"}},
	}

	SetIDAttr(rec)

	if rec.ID != "existing-id.TEST" {
		t.Errorf("SetIDAttr overwrote an existing ID: got %q", rec.ID)
	}
}
