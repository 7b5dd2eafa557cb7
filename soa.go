// Record identity and SOA serial generation.
//
// Grounded on server/register.c's generate_id/generate_updated/
// update_soa_record: a new record's ID is a timestamp-derived string
// unique per process, its Updated stamp records when it was last
// written, and the owning authority area's serial advances to match.
package rwhois

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var idSeq atomic.Uint32

// GenerateUpdated returns the current time as an "Updated" stamp:
// YYYYMMDDhhmmss followed by a fixed "000" suffix, matching the
// original's millisecond-less generate_updated.
func GenerateUpdated() string {
	return time.Now().UTC().Format("20060102150405") + "000"
}

// GenerateID returns a new record identifier for authArea, combining a
// timestamp, this process's pid, and a per-process sequence number (to
// disambiguate IDs minted within the same second) with the authority
// area name, mirroring generate_id's "<timestamp><pid>.<aa-name>" shape.
func GenerateID(authArea string) string {
	seq := idSeq.Add(1)
	return fmt.Sprintf("%s%d%04d.%s", time.Now().UTC().Format("20060102150405"), os.Getpid(), seq, authArea)
}

// SetUpdatedAttr stamps rec.Updated with a fresh GenerateUpdated value
// and, when rec's class declares an Updated attribute, sets (or appends)
// that attribute to the same value, mirroring set_updated_attr.
func SetUpdatedAttr(rec *Record) {
	rec.Updated = GenerateUpdated()
	attr := rec.Class.Attribute("Updated")
	if attr == nil {
		return
	}
	for i := range rec.Pairs {
		if rec.Pairs[i].Attr.GlobalID == attr.GlobalID {
			rec.Pairs[i].Value = rec.Updated
			return
		}
	}
	rec.Pairs = append(rec.Pairs, RecordPair{Attr: attr, Value: rec.Updated})
}

// SetIDAttr sets (or appends) rec's ID attribute, mirroring add_record's
// "only add an ID if there isn't one" rule: an existing value is left
// untouched.
func SetIDAttr(rec *Record) {
	attr := rec.Class.Attribute("ID")
	if attr == nil {
		return
	}
	if v, ok := rec.Get(attr); ok && v != "" {
		rec.ID = v
		return
	}
	rec.ID = GenerateID(rec.AuthArea.Name)
	rec.Pairs = append(rec.Pairs, RecordPair{Attr: attr, Value: rec.ID})
}
