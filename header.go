// Per-file crash-recovery header.
//
// Every data and index file the engine creates begins with a fixed-size
// JSON header recording a dirty flag and the shard algorithm used to
// build it. This is not part of the spec's wire format (spec.md §6 record
// and index file formats start with attribute/index lines, not a header);
// it is purely an internal crash-detection aid, carried over from the
// teacher's header.go, and is skipped by every reader that walks these
// files (readers seek past fileHeaderSize before scanning).
package rwhois

import (
	"bytes"
	"os"

	json "github.com/goccy/go-json"
)

// fileHeaderSize is the fixed on-disk size of a fileHeader, padded with
// spaces and newline-terminated like the teacher's header.go.
const fileHeaderSize = 64

type fileHeader struct {
	Version int   `json:"_v"`
	Dirty   int   `json:"_e"`
	Shard   int   `json:"_alg"`
	Written int64 `json:"_ts"`
}

func (h *fileHeader) encode() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	padLen := fileHeaderSize - len(data) - 1
	if padLen < 0 {
		return nil, newErr(KindStorage, "file header too large", nil)
	}
	buf := make([]byte, fileHeaderSize)
	copy(buf, data)
	for i := len(data); i < fileHeaderSize-1; i++ {
		buf[i] = ' '
	}
	buf[fileHeaderSize-1] = '\n'
	return buf, nil
}

func readFileHeader(f *os.File) (*fileHeader, error) {
	buf := make([]byte, fileHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	var h fileHeader
	if err := json.Unmarshal(bytes.TrimSpace(buf), &h); err != nil {
		return nil, newErr(KindStorage, "corrupt file header", err)
	}
	return &h, nil
}

// markFileDirty flips the _e field in place, write-through. Unlike the
// teacher's dirty() (which pokes a fixed byte offset because its header
// layout is constant-width), this decodes and re-encodes the whole header
// since ours has no such guarantee.
func markFileDirty(w *os.File, dirty bool) error {
	hdr, err := readFileHeader(w)
	if err != nil {
		return err
	}
	if dirty {
		hdr.Dirty = 1
	} else {
		hdr.Dirty = 0
	}
	buf, err := hdr.encode()
	if err != nil {
		return err
	}
	_, err = w.WriteAt(buf, 0)
	return err
}
