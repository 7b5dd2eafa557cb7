// Query execution: per-leaf index dispatch, linear scan with the AND
// check, de-duplication, and hit-limit tracking.
//
// Grounded on mkdb/search.c (search_index_file, search_exact_index_file,
// search_cidr_index_file, search_soundex_index_file) and
// mkdb/search_prim.c (full_scan, validate_search_cond,
// validate_and_list), per spec.md §4.6.
package rwhois

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// hitKey is the de-duplication key: (authority-area, class, data file,
// offset), per spec.md §4.6.
type hitKey struct {
	AuthArea   string
	Class      string
	DataFileNo int
	Offset     int64
}

// QueryExec carries the mutable state of one ExecuteQuery call: the hit
// count ceiling and the accumulated de-duplication set.
type QueryExec struct {
	reg      *FileRegistry
	class    *Class
	cfg      Config
	hitCount int
	seen     map[hitKey]bool
}

// ExecuteQuery runs q against class's published files, returning every
// matching Record in no particular order. Stops early with
// ErrHitLimitExceeded once cfg.HitLimit is reached (0 means unlimited).
func ExecuteQuery(reg *FileRegistry, class *Class, q *Query, cfg Config) ([]*Record, error) {
	cfg = cfg.withDefaults()

	if err := planQuery(q, class.AuthArea); err != nil {
		return nil, err
	}
	if err := checkQueryPolicy(q, cfg.Policy); err != nil {
		return nil, err
	}

	ex := &QueryExec{reg: reg, class: class, cfg: cfg, seen: map[hitKey]bool{}}

	var results []*Record
	for _, clause := range q.Clauses {
		recs, err := ex.runClause(clause)
		results = append(results, recs...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (ex *QueryExec) limitReached() bool {
	return ex.cfg.HitLimit > 0 && ex.hitCount >= ex.cfg.HitLimit
}

// resolveFileKinds returns the index file kinds a Term's head condition
// should be dispatched against, mirroring search_class's per-attribute
// index_type resolution.
func resolveFileKinds(t *Term, class *Class) []FileKind {
	if t.GlobalID == AnyAttribute {
		return []FileKind{FileExactIndex, FileCIDRIndex, FileSoundexIndex}
	}
	attr := class.AttributeByGlobalID(t.GlobalID)
	if attr == nil {
		return nil
	}
	switch attr.Index {
	case IndexExact:
		return []FileKind{FileExactIndex}
	case IndexCIDR:
		return []FileKind{FileCIDRIndex}
	case IndexSoundex:
		return []FileKind{FileSoundexIndex}
	case IndexAll:
		return []FileKind{FileExactIndex, FileCIDRIndex, FileSoundexIndex}
	default:
		return nil
	}
}

func (ex *QueryExec) runClause(head *Term) ([]*Record, error) {
	dataFiles := make(map[int]*FileDescriptor)
	for _, fd := range ex.reg.FilesOfKind(FileData) {
		dataFiles[fd.FileNo] = fd
	}

	var results []*Record
	for _, kind := range resolveFileKinds(head, ex.class) {
		if ex.limitReached() {
			return results, ErrHitLimitExceeded
		}
		if kind == FileCIDRIndex {
			if _, ok := ParsePrefixForSearch(head.Value); !ok {
				continue
			}
		}
		if kind == FileSoundexIndex && !SoundexEligible(head.Value) {
			continue
		}

		for _, fd := range ex.reg.FilesOfKind(kind) {
			recs, err := ex.searchIndexFile(fd, kind, head, dataFiles)
			results = append(results, recs...)
			if err != nil {
				return results, err
			}
			if ex.limitReached() {
				return results, ErrHitLimitExceeded
			}
		}
	}
	return results, nil
}

func (ex *QueryExec) searchIndexFile(fd *FileDescriptor, kind FileKind, head *Term, dataFiles map[int]*FileDescriptor) ([]*Record, error) {
	path := ex.reg.FilePath(fd)
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindStorage, "open index file: "+path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newErr(KindStorage, "stat index file: "+path, err)
	}
	end := info.Size()

	if kind == FileCIDRIndex {
		return ex.searchCIDR(f, end, head, dataFiles)
	}

	term := head
	if kind == FileSoundexIndex {
		rewritten := soundexIndexValue(head.Value)
		if rewritten == "" {
			return nil, nil
		}
		cp := *head
		cp.Value = rewritten
		term = &cp
	}
	if kind == FileExactIndex {
		cp := *head
		cp.Value = exactIndexValue(head.Value)
		term = &cp
	}

	entries, err := ex.dispatchTerm(f, end, term)
	if err != nil {
		return nil, err
	}
	return ex.loadAndFilter(entries, head, dataFiles)
}

// dispatchTerm runs term against one open index file, choosing between a
// full scan (an explicit FULL-SCAN search type, a substring compare, or a
// negated compare) and a binary-search-rooted ordered scan, mirroring
// search_index_file's choice of full_scan vs binary_search.
func (ex *QueryExec) dispatchTerm(f *os.File, end int64, term *Term) ([]IndexEntry, error) {
	filterMatch := func(e IndexEntry) bool {
		if e.Deleted {
			return false
		}
		if term.GlobalID != AnyAttribute && e.AttributeID != term.GlobalID {
			return false
		}
		if !compareMatches(term.Compare, term.Negated, term.Value, e.Value) {
			return false
		}
		if attr := ex.class.AttributeByGlobalID(e.AttributeID); attr != nil && attr.Type == TypeID && term.GlobalID != attr.GlobalID {
			return false
		}
		return true
	}

	if term.SearchType == SearchFullScan || term.Negated || term.Compare == CompareSubstring {
		return fullScanShard(f, end, filterMatch)
	}

	return scanIndexShard(f, fileHeaderSize, end, term.Value, func(e IndexEntry) (keep bool, cont bool) {
		keep = filterMatch(e)
		switch term.Compare {
		case CompareFull:
			cont = e.Value == term.Value
		case ComparePrefix:
			cont = strings.HasPrefix(e.Value, term.Value)
		default:
			cont = true
		}
		return keep, cont
	})
}

func (ex *QueryExec) searchCIDR(f *os.File, end int64, head *Term, dataFiles map[int]*FileDescriptor) ([]*Record, error) {
	p, ok := ParsePrefixForSearch(head.Value)
	if !ok {
		return nil, nil
	}
	var results []*Record
	var walkErr error
	p.WalkLengths(func(step Prefix) bool {
		cp := *head
		cp.Value = step.Canonical()
		cp.Compare = CompareFull
		cp.SearchType = SearchBinary
		cp.Negated = false

		entries, err := ex.dispatchTerm(f, end, &cp)
		if err != nil {
			walkErr = err
			return false
		}
		recs, err := ex.loadAndFilter(entries, head, dataFiles)
		if err != nil {
			walkErr = err
			return false
		}
		results = append(results, recs...)
		return !ex.limitReached()
	})
	return results, walkErr
}

func compareMatches(ct CompareType, negated bool, query, value string) bool {
	var base bool
	switch ct {
	case CompareFull:
		base = value == query
	case ComparePrefix:
		base = strings.HasPrefix(value, query)
	case CompareSubstring:
		base = strings.Contains(value, query)
	}
	if negated {
		return !base
	}
	return base
}

// loadAndFilter dedupes entries, loads each surviving record, applies
// head's AND-list against the full record, and tracks the hit count.
func (ex *QueryExec) loadAndFilter(entries []IndexEntry, head *Term, dataFiles map[int]*FileDescriptor) ([]*Record, error) {
	var results []*Record
	for _, e := range entries {
		if ex.limitReached() {
			return results, ErrHitLimitExceeded
		}
		key := hitKey{AuthArea: ex.class.AuthArea.Name, Class: ex.class.Name, DataFileNo: e.DataFileNo, Offset: e.Offset}
		if ex.seen[key] {
			continue
		}

		fd, ok := dataFiles[e.DataFileNo]
		if !ok {
			continue
		}
		rec, err := loadRecordAt(ex.reg, fd, e.Offset, ex.class)
		if err != nil {
			return results, err
		}
		if rec == nil {
			continue
		}

		if len(head.And) > 0 && !matchAndList(rec, head.And) {
			continue
		}

		ex.seen[key] = true
		ex.hitCount++
		results = append(results, rec)
	}
	return results, nil
}

// matchAndList validates rec against every additional AND condition,
// mirroring validate_and_list: each condition must match at least one
// attribute value on the record (upper-cased before compare).
func matchAndList(rec *Record, and []*Term) bool {
	for _, cond := range and {
		ok := false
		for _, p := range rec.Pairs {
			if cond.GlobalID != AnyAttribute && p.Attr.GlobalID != cond.GlobalID {
				continue
			}
			if compareMatches(cond.Compare, cond.Negated, strings.ToUpper(cond.Value), strings.ToUpper(p.Value)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// loadRecordAt seeks to offset in fd's file and parses the one record
// starting there, translated against class.
func loadRecordAt(reg *FileRegistry, fd *FileDescriptor, offset int64, class *Class) (*Record, error) {
	path := reg.FilePath(fd)
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindStorage, "open data file: "+path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newErr(KindStorage, "stat data file: "+path, err)
	}
	r := bufio.NewReader(io.NewSectionReader(f, offset, info.Size()-offset))
	anon, result, err := ParseRecord(r)
	if err != nil {
		return nil, err
	}
	if result != ParseOK {
		return nil, nil
	}
	rec, err := Translate(anon, class, class.AuthArea, false)
	if err != nil {
		return nil, err
	}
	rec.Loc = Locator{DataFileNo: fd.FileNo, Offset: offset}
	return rec, nil
}
