// Index line codec: the on-disk record of one secondary-index file, per
// spec.md §6 — "offset:data_file_no:deleted:attribute_id:value". Grounded
// directly on the original's encode_index_line/decode_index_line
// (mkdb/index.c), including its field-limited split: the value is never
// escaped, so a decode must stop splitting after the fourth colon or an
// IPv6 address in the value would be chopped apart.
package rwhois

import (
	"strconv"
	"strings"
)

// IndexEntry is one line of a secondary index file.
type IndexEntry struct {
	Offset      int64
	DataFileNo  int
	Deleted     bool
	AttributeID int
	Value       string
}

func (e IndexEntry) encode() string {
	deleted := 0
	if e.Deleted {
		deleted = 1
	}
	var b strings.Builder
	b.WriteString(strconv.FormatInt(e.Offset, 10))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(e.DataFileNo))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(deleted))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(e.AttributeID))
	b.WriteByte(':')
	b.WriteString(e.Value)
	return b.String()
}

func decodeIndexLine(line string) (IndexEntry, error) {
	fields := strings.SplitN(line, ":", 5)
	if len(fields) != 5 {
		return IndexEntry{}, newErr(KindStorage, "malformed index line: "+line, nil)
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return IndexEntry{}, newErr(KindStorage, "bad index offset: "+line, err)
	}
	fileNo, _ := strconv.Atoi(fields[1])
	attrID, _ := strconv.Atoi(fields[3])
	return IndexEntry{
		Offset:      offset,
		DataFileNo:  fileNo,
		Deleted:     fields[2] == "1",
		AttributeID: attrID,
		Value:       fields[4],
	}, nil
}

// compareIndexEntries orders by Value then AttributeID, matching the
// original's "sort -k 5,5 -k 4,4n" index-sort command.
func compareIndexEntries(a, b IndexEntry) int {
	if a.Value != b.Value {
		if a.Value < b.Value {
			return -1
		}
		return 1
	}
	if a.AttributeID != b.AttributeID {
		if a.AttributeID < b.AttributeID {
			return -1
		}
		return 1
	}
	return 0
}
