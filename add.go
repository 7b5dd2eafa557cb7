// Add: the three-phase (read already done by the caller's spool parse,
// check, commit) path for registering a brand new record.
//
// Grounded on server/register.c's check_add/add_record/index_new_record,
// per spec.md §4.7.
package rwhois

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
)

// uniqueBloomCache holds one lazily-built Bloom filter per class, keyed
// by the class pointer, speeding up Add's uniqueness pre-check when a
// class has exactly one primary-key attribute (the common case): a
// filter miss proves the value is new without touching the index files
// at all, mirroring check_uniq_record's search but skipping the search
// on the definitely-new path.
var uniqueBloomCache sync.Map // *Class -> *bloomFilter

func singlePrimaryKeyBloom(reg *FileRegistry, class *Class) (*bloomFilter, *AttributeDef, error) {
	pks := class.PrimaryKeys()
	if len(pks) != 1 {
		return nil, nil, nil
	}
	attr := pks[0]
	if cached, ok := uniqueBloomCache.Load(class); ok {
		return cached.(*bloomFilter), attr, nil
	}

	filter := newBloomFilter()
	for _, fd := range reg.FilesOfKind(FileExactIndex) {
		path := reg.FilePath(fd)
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, newErr(KindStorage, "open index file: "+path, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, newErr(KindStorage, "stat index file: "+path, err)
		}
		_, err = fullScanShard(f, info.Size(), func(e IndexEntry) bool {
			if e.AttributeID == attr.GlobalID && !e.Deleted {
				filter.Add(e.Value)
			}
			return false
		})
		f.Close()
		if err != nil {
			return nil, nil, err
		}
	}
	uniqueBloomCache.Store(class, filter)
	return filter, attr, nil
}

// invalidateUniqueBloom drops a class's cached filter, so the next Add
// rebuilds it from the now-current index files. Called after any commit
// that changes the class's primary-key population.
func invalidateUniqueBloom(class *Class) {
	uniqueBloomCache.Delete(class)
}

// checkUniqueRecord reports whether rec's primary-key values are already
// present in class, mirroring check_uniq_record's AND-query over the
// primary keys. A class with no primary keys is always unique, per
// spec.md's tolerance for keyless classes.
func checkUniqueRecord(reg *FileRegistry, class *Class, rec *Record, cfg Config) error {
	pks := class.PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}

	if filter, attr, err := singlePrimaryKeyBloom(reg, class); err != nil {
		return err
	} else if filter != nil {
		v, ok := rec.Get(attr)
		if ok && !filter.MaybeContains(exactIndexValue(v)) {
			return nil
		}
	}

	head := &Term{AttrName: pks[0].Name, Compare: CompareFull, Value: pks[0].mustValue(rec)}
	for _, attr := range pks[1:] {
		head.And = append(head.And, &Term{AttrName: attr.Name, Compare: CompareFull, Value: attr.mustValue(rec)})
	}
	q := &Query{Clauses: []*Term{head}}

	recs, err := ExecuteQuery(reg, class, q, cfg)
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		return ErrNotUnique
	}
	return nil
}

// mustValue returns rec's (possibly empty) value for attr without the
// found flag, for building query terms.
func (a *AttributeDef) mustValue(rec *Record) string {
	v, _ := rec.Get(a)
	return v
}

// CheckAdd validates anon for insertion into class within aa: binds it,
// strips any client-supplied ID (the server always assigns one),
// enforces the schema and uniqueness constraints, runs the class's
// external parser (if configured), and, for a Guardian record, normalizes
// its credential fields. It does not touch storage.
func CheckAdd(ctx context.Context, anon *AnonymousRecord, class *Class, aa *AuthorityArea, reg *FileRegistry, registrantEmail string, cfg Config) (*Record, error) {
	if aa.Type != Primary {
		return nil, newErr(KindAuthorization, "authority area is not primary: "+aa.Name, nil)
	}

	var filtered AnonymousRecord
	for _, p := range anon.Pairs {
		if strings.EqualFold(p.Name, "ID") {
			continue
		}
		filtered.Pairs = append(filtered.Pairs, p)
	}

	rec, err := Translate(&filtered, class, aa, true)
	if err != nil {
		return nil, err
	}
	if err := CheckRecord(rec, false); err != nil {
		return nil, err
	}
	if err := checkUniqueRecord(reg, class, rec, cfg); err != nil {
		return nil, err
	}
	rec, err = RunExternalParser(ctx, class, ExternalParserAdd, registrantEmail, nil, rec)
	if err != nil {
		return nil, err
	}
	if err := TransformGuardianRecord(rec, class); err != nil {
		return nil, err
	}
	return rec, nil
}

// CommitAdd assigns rec its ID and Updated stamps, appends it to class's
// current (or a fresh) data file, rebuilds the class's secondary indexes,
// and advances aa's SOA serial — the add_record/index_new_record commit
// phase. tmpDir is external-sort scratch space for the index rebuild.
func CommitAdd(reg *FileRegistry, class *Class, rec *Record, tmpDir string, cfg Config) error {
	SetIDAttr(rec)
	SetUpdatedAttr(rec)

	if err := appendRecordToDataFile(reg, class, rec, cfg); err != nil {
		return err
	}

	dataFiles := reg.FilesOfKind(FileData)
	if _, err := BuildIndexes(reg, class, dataFiles, tmpDir, cfg); err != nil {
		return err
	}
	invalidateUniqueBloom(class)

	rec.AuthArea.BumpSerial(rec.Updated)
	return nil
}

// appendRecordToDataFile appends rec to the class's newest data file,
// creating one (with a fresh fileHeader) if none exists yet, or if the
// newest one is already Lock==true. A locked data file was already
// published through BuildIndexes's commit-time reindex; per spec.md §4.2
// and §5, once a data file carries lock:1 its byte ranges are
// append-only and otherwise immutable, so a locked file is never reused.
func appendRecordToDataFile(reg *FileRegistry, class *Class, rec *Record, cfg Config) error {
	dataFiles := reg.FilesOfKind(FileData)
	var fd *FileDescriptor
	if len(dataFiles) > 0 && !dataFiles[len(dataFiles)-1].Lock {
		fd = dataFiles[len(dataFiles)-1]
	}

	if fd == nil {
		fd = reg.NewFileTemplate(FileData, class.Name)
		f, err := os.Create(reg.FilePath(fd))
		if err != nil {
			return newErr(KindStorage, "create data file", err)
		}
		hdr := fileHeader{Version: 1}
		hdrBytes, err := hdr.encode()
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(hdrBytes); err != nil {
			f.Close()
			return newErr(KindStorage, "write data file header", err)
		}
		f.Close()
		if err := reg.ModifyFileList([]*FileDescriptor{fd}, nil, nil, nil, nil); err != nil {
			return err
		}
	}

	path := reg.FilePath(fd)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return newErr(KindStorage, "open data file for append", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := rec.Emit(w); err != nil {
		return err
	}
	if cfg.SyncWrites {
		if err := f.Sync(); err != nil {
			return newErr(KindStorage, "sync data file", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return newErr(KindStorage, "stat data file", err)
	}
	modFd := *fd
	modFd.Size = info.Size()
	modFd.NumRecs++
	return reg.ModifyFileList(nil, nil, []*FileDescriptor{&modFd}, nil, nil)
}
