// Binary search over a sorted secondary index file.
//
// Grounded on the teacher's scan/scanBack/align (scan.go): classic
// midpoint search on byte offsets, snapped backward to the preceding
// newline, narrowing to the first line whose key is >= the query key,
// per spec.md §4.6's "Binary search protocol".
package rwhois

import (
	"bufio"
	"io"
	"os"
)

// readLineAt reads one newline-terminated line starting at offset,
// returning its bytes without the trailing newline.
func readLineAt(f *os.File, offset int64) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, newErr(KindStorage, "stat index file", err)
	}
	remaining := info.Size() - offset
	if remaining <= 0 {
		return nil, io.EOF
	}
	r := bufio.NewReader(io.NewSectionReader(f, offset, remaining))
	data, err := r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	return data, nil
}

// nextNewline finds the position of the first newline at or after
// offset, within [offset, end). Returns -1 if none is found.
func nextNewline(f *os.File, offset, end int64) (int64, error) {
	if offset >= end {
		return -1, nil
	}
	r := bufio.NewReader(io.NewSectionReader(f, offset, end-offset))
	pos := offset
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return -1, nil
		}
		if err != nil {
			return -1, err
		}
		if b == '\n' {
			return pos, nil
		}
		pos++
	}
}

// lineAtOrAfter returns the first parsed IndexEntry starting at or after
// offset, within [offset, end), and the offset where the following line
// begins. Skips one unreadable/blank line at most (e.g. the header's
// trailing padding) by snapping to the next newline.
func lineAtOrAfter(f *os.File, offset, end int64) (IndexEntry, int64, bool, error) {
	nl, err := nextNewline(f, offset, end)
	var recordStart int64
	if offset == fileHeaderSize {
		// Right after the header: the header itself ends on a newline,
		// so offset already marks a line start.
		recordStart = offset
	} else if nl < 0 {
		return IndexEntry{}, 0, false, nil
	} else {
		recordStart = nl + 1
	}
	if recordStart >= end {
		return IndexEntry{}, 0, false, nil
	}
	raw, err := readLineAt(f, recordStart)
	if err != nil && err != io.EOF {
		return IndexEntry{}, 0, false, err
	}
	if len(raw) == 0 {
		return IndexEntry{}, 0, false, nil
	}
	entry, err := decodeIndexLine(string(raw))
	if err != nil {
		return IndexEntry{}, 0, false, err
	}
	return entry, recordStart + int64(len(raw)) + 1, true, nil
}

// binarySearchFirst finds the offset of the first line within
// [start, end) whose Value is >= target, narrowing by midpoint and
// snapping backward to the preceding newline at each step, per spec.md
// §4.6. Returns found=false if every line in range sorts before target.
func binarySearchFirst(f *os.File, start, end int64, target string) (int64, bool, error) {
	lo, hi := start, end
	result := int64(-1)

	for lo < hi {
		mid := lo + (hi-lo)/2

		// Snap back to the start of the line containing mid.
		candidateStart := mid
		for candidateStart > start {
			var b [1]byte
			if _, err := f.ReadAt(b[:], candidateStart-1); err != nil {
				return 0, false, newErr(KindStorage, "read index file", err)
			}
			if b[0] == '\n' {
				break
			}
			candidateStart--
		}
		if candidateStart >= end {
			hi = mid
			continue
		}

		raw, err := readLineAt(f, candidateStart)
		if err != nil && err != io.EOF {
			return 0, false, err
		}
		if len(raw) == 0 {
			hi = mid
			continue
		}
		entry, err := decodeIndexLine(string(raw))
		if err != nil {
			return 0, false, err
		}

		if entry.Value >= target {
			result = candidateStart
			hi = candidateStart
			if hi <= lo {
				break
			}
		} else {
			lo = candidateStart + int64(len(raw)) + 1
		}
	}

	if result < 0 {
		return 0, false, nil
	}
	return result, true, nil
}

// scanIndexShard walks forward from the first line whose Value is >=
// lowerBound, invoking match for each decoded entry; match returns
// (keep, continueScanning). Stops at end or when match signals stop.
func scanIndexShard(f *os.File, start, end int64, lowerBound string, match func(IndexEntry) (keep bool, cont bool)) ([]IndexEntry, error) {
	var out []IndexEntry
	pos, found, err := binarySearchFirst(f, start, end, lowerBound)
	if err != nil {
		return nil, err
	}
	if !found {
		return out, nil
	}
	for pos < end {
		raw, err := readLineAt(f, pos)
		if err != nil && err != io.EOF {
			return out, err
		}
		if len(raw) == 0 {
			break
		}
		entry, err := decodeIndexLine(string(raw))
		if err != nil {
			return out, err
		}
		keep, cont := match(entry)
		if keep {
			out = append(out, entry)
		}
		if !cont {
			break
		}
		pos += int64(len(raw)) + 1
	}
	return out, nil
}

// fullScanShard walks an entire index file from offset 0 (just past its
// header), applying match to every entry — the FULL-SCAN dispatch used
// by substring and negated compares, per spec.md §4.6.
func fullScanShard(f *os.File, end int64, match func(IndexEntry) bool) ([]IndexEntry, error) {
	var out []IndexEntry
	pos := int64(fileHeaderSize)
	for pos < end {
		raw, err := readLineAt(f, pos)
		if err != nil && err != io.EOF {
			return out, err
		}
		if len(raw) == 0 {
			break
		}
		entry, err := decodeIndexLine(string(raw))
		if err != nil {
			return out, err
		}
		if match(entry) {
			out = append(out, entry)
		}
		pos += int64(len(raw)) + 1
	}
	return out, nil
}
