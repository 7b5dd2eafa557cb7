// Delete: locate a record by ID and Updated, authorize, and soft-delete.
//
// Grounded on server/register.c's get_real_object_from_anon/check_del/
// del_record and mkdb/delete.c's leading-byte soft-delete convention,
// per spec.md §4.7, §4.8.
package rwhois

import (
	"context"
	"io"
	"os"
)

// FindByIDAndUpdated resolves the anon record's ID (and, if present,
// Updated) attributes to the live record they identify, mirroring
// get_real_object_from_anon. A present Updated value that no longer
// matches the stored record reports ErrOutdatedObj — the caller was
// modifying/deleting a stale copy.
func FindByIDAndUpdated(reg *FileRegistry, class *Class, anon *AnonymousRecord, cfg Config) (*Record, error) {
	id, ok := anon.Get("ID")
	if !ok || id == "" {
		return nil, newErr(KindValidation, "missing required attribute: ID", ErrMissingRequired)
	}
	updated, hasUpdated := anon.Get("Updated")

	q := &Query{Clauses: []*Term{{AttrName: "ID", Compare: CompareFull, Value: id}}}
	recs, err := ExecuteQuery(reg, class, q, cfg)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	if !hasUpdated {
		return recs[0], nil
	}
	for _, r := range recs {
		if r.Updated == updated {
			return r, nil
		}
	}
	return nil, ErrOutdatedObj
}

// CheckDelete authorizes deletion of rec, mirroring check_del's permission
// gate, and then runs class's external parser (if configured) so it can
// veto the delete.
func CheckDelete(ctx context.Context, rec *Record, class *Class, req *AuthRequest, aa *AuthorityArea, openReg func(*Class) (*FileRegistry, error), registrantEmail string, cfg Config, secure bool, logf func(string, ...any)) error {
	if aa.Type != Primary {
		return newErr(KindAuthorization, "authority area is not primary: "+aa.Name, nil)
	}
	ok, err := CheckGuardian(rec, class, req, aa, openReg, cfg, secure, logf)
	if err != nil {
		return err
	}
	if !ok {
		return newErr(KindAuthorization, "not authorized to delete "+rec.ID, nil)
	}
	if _, err := RunExternalParser(ctx, class, ExternalParserDelete, registrantEmail, rec, nil); err != nil {
		return err
	}
	return nil
}

// CommitDelete soft-deletes rec in place: it flips the leading byte of
// every attribute line's leading byte to '_' up to, but not including,
// the "---" separator, mirroring mkdb_delete_data_entry byte-for-byte
// (ParseRecord only needs the first line's leading byte to recognize a
// soft-deleted record, but flipping every line keeps a soft-deleted
// record's body from being readable by a tool that scans the data file
// directly instead of going through ParseRecord). It decrements the
// owning data file's record count, and — unless updateSOA is false (the
// del half of a modify, which defers the serial bump to the following
// add) — advances aa's SOA serial.
func CommitDelete(reg *FileRegistry, class *Class, rec *Record, updateSOA bool) error {
	var fd *FileDescriptor
	for _, d := range reg.FilesOfKind(FileData) {
		if d.FileNo == rec.Loc.DataFileNo {
			fd = d
			break
		}
	}
	if fd == nil {
		return newErr(KindStorage, "data file not found for record", ErrIndexMissing)
	}

	path := reg.FilePath(fd)
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return newErr(KindStorage, "open data file for delete", err)
	}
	if err := softDeleteLines(f, rec.Loc.Offset); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return newErr(KindStorage, "close data file", err)
	}

	modFd := *fd
	modFd.NumRecs--
	if err := reg.ModifyFileList(nil, nil, []*FileDescriptor{&modFd}, nil, nil); err != nil {
		return err
	}
	invalidateUniqueBloom(class)

	if updateSOA {
		rec.AuthArea.BumpSerial(GenerateUpdated())
	}
	return nil
}

// softDeleteLines flips the leading byte of every line starting at
// offset to '_', stopping at (and not touching) the "---" record
// separator or EOF.
func softDeleteLines(f *os.File, offset int64) error {
	pos := offset
	for {
		raw, err := readLineAt(f, pos)
		if err != nil && err != io.EOF {
			return newErr(KindStorage, "read record line for delete", err)
		}
		if len(raw) == 0 || (len(raw) >= 3 && string(raw[:3]) == "---") {
			break
		}
		if _, err := f.WriteAt([]byte("_"), pos); err != nil {
			return newErr(KindStorage, "write soft-delete marker", err)
		}
		pos += int64(len(raw)) + 1
	}
	return nil
}
