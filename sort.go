// External sort for secondary index files.
//
// The original indexer shells out to the system "sort" command
// (SORT_COMMAND in mkdb/index.c: "sort -k 5,5 -k 4,4n -t :"). In its
// place this builds a small external merge sort: unsorted index lines
// are bucketed by shardHash into runs, each run is sorted in memory and
// spilled to a zstd-compressed temp file once it grows past
// runRowLimit, and the accumulated runs for a shard are k-way merged
// into the shard's final, fully-sorted index file. A shard that never
// exceeds runRowLimit skips the spill/merge machinery entirely and is
// sorted and written directly.
package rwhois

import (
	"bufio"
	"container/heap"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
)

// runRowLimit bounds how many entries a shard accumulator holds in memory
// before spilling a sorted run to disk.
const runRowLimit = 50000

// shardAccumulator collects IndexEntry rows for one shard of one index
// kind, spilling sorted runs to disk once it grows too large to hold
// comfortably in memory.
type shardAccumulator struct {
	tmpDir  string
	kind    FileKind
	shard   int
	pending []IndexEntry
	runs    []string
}

func newShardAccumulator(tmpDir string, kind FileKind, shard int) *shardAccumulator {
	return &shardAccumulator{tmpDir: tmpDir, kind: kind, shard: shard}
}

func (s *shardAccumulator) add(e IndexEntry) error {
	s.pending = append(s.pending, e)
	if len(s.pending) >= runRowLimit {
		return s.spill()
	}
	return nil
}

func (s *shardAccumulator) spill() error {
	if len(s.pending) == 0 {
		return nil
	}
	slices.SortFunc(s.pending, compareIndexEntries)

	path := filepath.Join(s.tmpDir, fmt.Sprintf("%s-run-%03d-%03d.zst", s.kind, s.shard, len(s.runs)))
	f, err := os.Create(path)
	if err != nil {
		return newErr(KindStorage, "create sort run", err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return newErr(KindStorage, "open run compressor", err)
	}
	for _, e := range s.pending {
		if _, err := io.WriteString(zw, e.encode()+"\n"); err != nil {
			zw.Close()
			f.Close()
			return newErr(KindStorage, "write sort run", err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return newErr(KindStorage, "flush sort run", err)
	}
	if err := f.Close(); err != nil {
		return newErr(KindStorage, "close sort run", err)
	}
	s.runs = append(s.runs, path)
	s.pending = nil
	return nil
}

// finalize writes the shard's fully sorted entries to w, merging any
// spilled runs with the remaining in-memory tail, and removes the run
// files. Returns the number of entries written.
func (s *shardAccumulator) finalize(w io.Writer) (int, error) {
	if len(s.runs) == 0 {
		slices.SortFunc(s.pending, compareIndexEntries)
		n := 0
		for _, e := range s.pending {
			if _, err := io.WriteString(w, e.encode()+"\n"); err != nil {
				return n, newErr(KindStorage, "write index file", err)
			}
			n++
		}
		return n, nil
	}

	if len(s.pending) > 0 {
		if err := s.spill(); err != nil {
			return 0, err
		}
	}
	n, err := mergeRuns(s.runs, w)
	for _, path := range s.runs {
		os.Remove(path)
	}
	return n, err
}

// mergeEntry pairs a decoded IndexEntry with the scanner it came from, for
// the k-way merge heap below.
type mergeEntry struct {
	entry IndexEntry
	idx   int
}

type mergeHeap []mergeEntry

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	return compareIndexEntries(h[i].entry, h[j].entry) < 0
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(mergeEntry)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeRuns performs a k-way merge of sorted, zstd-compressed run files
// into w, in compareIndexEntries order.
func mergeRuns(runs []string, w io.Writer) (int, error) {
	scanners := make([]*bufio.Scanner, len(runs))
	closers := make([]func(), len(runs))
	for i, path := range runs {
		f, err := os.Open(path)
		if err != nil {
			return 0, newErr(KindStorage, "open sort run", err)
		}
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return 0, newErr(KindStorage, "open run decompressor", err)
		}
		scanners[i] = bufio.NewScanner(zr)
		scanners[i].Buffer(make([]byte, 64*1024), 1<<20)
		closers[i] = func() { zr.Close(); f.Close() }
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	h := &mergeHeap{}
	heap.Init(h)
	for i, sc := range scanners {
		if sc.Scan() {
			e, err := decodeIndexLine(sc.Text())
			if err != nil {
				return 0, err
			}
			heap.Push(h, mergeEntry{entry: e, idx: i})
		}
	}

	n := 0
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeEntry)
		if _, err := io.WriteString(w, top.entry.encode()+"\n"); err != nil {
			return n, newErr(KindStorage, "write merged index file", err)
		}
		n++
		sc := scanners[top.idx]
		if sc.Scan() {
			e, err := decodeIndexLine(sc.Text())
			if err != nil {
				return n, err
			}
			heap.Push(h, mergeEntry{entry: e, idx: top.idx})
		}
	}
	return n, nil
}
