// File registry: the master file list ("local.db") for one (class,
// authority-area) pair.
//
// Persistence format is exactly spec.md §6: one descriptor per line,
// "type:<kind> file:<relpath> file_no:<n> size:<bytes> num_recs:<n>
// lock:<0|1>". The sole mutator, ModifyFileList, rewrites the whole file
// under the directory's dot-lock in one pass — add/delete/modify/lock/
// unlock are all applied before the new local.db is swapped in via
// rename, mirroring the teacher's write-to-temp-then-rename discipline
// (repair.go) generalized from "one combined file" to "one manifest file
// naming many files".
package rwhois

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
)

// FileKind distinguishes the four kinds of file a class tracks.
type FileKind int

const (
	FileData FileKind = iota
	FileExactIndex
	FileCIDRIndex
	FileSoundexIndex
)

func (k FileKind) String() string {
	switch k {
	case FileData:
		return "data"
	case FileExactIndex:
		return "exact"
	case FileCIDRIndex:
		return "cidr"
	case FileSoundexIndex:
		return "soundex"
	default:
		return "unknown"
	}
}

func parseFileKind(s string) (FileKind, bool) {
	switch s {
	case "data":
		return FileData, true
	case "exact":
		return FileExactIndex, true
	case "cidr":
		return FileCIDRIndex, true
	case "soundex":
		return FileSoundexIndex, true
	default:
		return 0, false
	}
}

// FileDescriptor is one entry of the master file list.
type FileDescriptor struct {
	Kind     FileKind
	Filename string // relative to the class's DB directory
	FileNo   int
	Size     int64
	NumRecs  int
	Lock     bool

	handle *os.File // transient, not persisted
}

// FileRegistry is the master file list for one (class, authority-area) pair,
// backed by "<dbdir>/local.db".
type FileRegistry struct {
	dbDir string
	lock  *dotLock

	files  []*FileDescriptor
	nextID int
}

// OpenFileRegistry loads (or creates) the master file list under dbDir.
func OpenFileRegistry(dbDir string) (*FileRegistry, error) {
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, newErr(KindStorage, "create db directory", err)
	}
	r := &FileRegistry{dbDir: dbDir, lock: newDotLock(dbDir)}
	if err := r.lock.Lock(LockShared); err != nil {
		return nil, err
	}
	defer r.lock.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRegistry) localDBPath() string { return filepath.Join(r.dbDir, "local.db") }

func (r *FileRegistry) load() error {
	r.files = nil
	f, err := os.Open(r.localDBPath())
	if os.IsNotExist(err) {
		r.nextID = 1
		return nil
	}
	if err != nil {
		return newErr(KindStorage, "open local.db", err)
	}
	defer f.Close()

	maxID := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fd, err := parseDescriptorLine(line)
		if err != nil {
			return err
		}
		r.files = append(r.files, fd)
		if fd.FileNo > maxID {
			maxID = fd.FileNo
		}
	}
	if err := scanner.Err(); err != nil {
		return newErr(KindStorage, "read local.db", err)
	}
	r.nextID = maxID + 1
	return nil
}

func parseDescriptorLine(line string) (*FileDescriptor, error) {
	fd := &FileDescriptor{}
	for _, field := range strings.Fields(line) {
		k, v, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		switch k {
		case "type":
			kind, ok := parseFileKind(v)
			if !ok {
				return nil, newErr(KindStorage, "bad local.db type field: "+v, nil)
			}
			fd.Kind = kind
		case "file":
			fd.Filename = v
		case "file_no":
			n, _ := strconv.Atoi(v)
			fd.FileNo = n
		case "size":
			n, _ := strconv.ParseInt(v, 10, 64)
			fd.Size = n
		case "num_recs":
			n, _ := strconv.Atoi(v)
			fd.NumRecs = n
		case "lock":
			fd.Lock = v == "1"
		}
	}
	return fd, nil
}

func (fd *FileDescriptor) line() string {
	lockBit := 0
	if fd.Lock {
		lockBit = 1
	}
	return fmt.Sprintf("type:%s file:%s file_no:%d size:%d num_recs:%d lock:%d\n",
		fd.Kind, fd.Filename, fd.FileNo, fd.Size, fd.NumRecs, lockBit)
}

// Files returns a snapshot of the current descriptor list.
func (r *FileRegistry) Files() []*FileDescriptor {
	out := make([]*FileDescriptor, len(r.files))
	copy(out, r.files)
	return out
}

// FilesOfKind returns every descriptor of the given kind, in list order.
func (r *FileRegistry) FilesOfKind(kind FileKind) []*FileDescriptor {
	var out []*FileDescriptor
	for _, fd := range r.files {
		if fd.Kind == kind {
			out = append(out, fd)
		}
	}
	return out
}

// NewFileTemplate allocates a real (not temporary) filename for a new
// file of the given kind, without adding it to the registry; the
// descriptor's FileNo is assigned later, when ModifyFileList publishes it.
// Callers create and populate the file, then pass the returned
// descriptor to ModifyFileList's add list. Replaces the original's
// mktemp()-based generate_index_file_tmpname with a collision-safe uuid,
// the same generator the write path uses for its correlation ids.
func (r *FileRegistry) NewFileTemplate(kind FileKind, prefix string) *FileDescriptor {
	if prefix == "" {
		prefix = "rwhois"
	}
	suffix := uuid.Must(uuid.NewV4()).String()
	name := fmt.Sprintf("%s-%s-%s.db", prefix, kind, suffix)
	return &FileDescriptor{Kind: kind, Filename: name}
}

// ModifyFileList performs add/delete/modify/lock/unlock in one atomic
// rewrite of local.db, under the directory's dot-lock, per spec.md §4.2.
// add descriptors are assigned a fresh FileNo here, at publish time.
// delete descriptors are matched by FileNo and removed; the physical
// unlink is left to the caller, after this call returns, per spec.
// modify/lock/unlock entries are matched by FileNo and have their fields
// replaced in place.
func (r *FileRegistry) ModifyFileList(add, del, modify []*FileDescriptor, lock, unlock []int) error {
	if err := r.lock.Lock(LockExclusive); err != nil {
		return err
	}
	defer r.lock.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	delSet := map[int]bool{}
	for _, d := range del {
		delSet[d.FileNo] = true
	}
	modByID := map[int]*FileDescriptor{}
	for _, m := range modify {
		modByID[m.FileNo] = m
	}
	lockSet := map[int]bool{}
	for _, id := range lock {
		lockSet[id] = true
	}
	unlockSet := map[int]bool{}
	for _, id := range unlock {
		unlockSet[id] = true
	}

	var result []*FileDescriptor
	for _, fd := range r.files {
		if delSet[fd.FileNo] {
			continue
		}
		if m, ok := modByID[fd.FileNo]; ok {
			fd = m
		}
		if lockSet[fd.FileNo] {
			fd.Lock = true
		}
		if unlockSet[fd.FileNo] {
			fd.Lock = false
		}
		result = append(result, fd)
	}

	for _, fd := range add {
		fd.FileNo = r.nextID
		r.nextID++
		result = append(result, fd)
	}

	if err := writeLocalDB(r.localDBPath(), result); err != nil {
		return err
	}
	r.files = result
	return nil
}

// writeLocalDB writes descs to path via write-to-temp-then-rename, the
// same discipline the teacher's repair.go uses for swapping in a rebuilt
// database file.
func writeLocalDB(path string, descs []*FileDescriptor) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return newErr(KindStorage, "create local.db.tmp", err)
	}
	w := bufio.NewWriter(f)
	for _, fd := range descs {
		if _, err := w.WriteString(fd.line()); err != nil {
			f.Close()
			return newErr(KindStorage, "write local.db.tmp", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return newErr(KindStorage, "flush local.db.tmp", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return newErr(KindStorage, "sync local.db.tmp", err)
	}
	if err := f.Close(); err != nil {
		return newErr(KindStorage, "close local.db.tmp", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return newErr(KindStorage, "rename local.db.tmp", err)
	}
	return nil
}

// FilePath returns the absolute path of fd within this registry's
// directory.
func (r *FileRegistry) FilePath(fd *FileDescriptor) string {
	return filepath.Join(r.dbDir, fd.Filename)
}
