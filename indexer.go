// Indexer: builds secondary index files from a class's data files.
//
// Grounded on mkdb/index.c's index_files/index_data_file/index_record:
// read each data file's live records start to finish, fan each indexable
// attribute value out to the index kind(s) its schema entry names, and
// publish the result through the FileRegistry in one atomic
// ModifyFileList call. The original's single system-sort-backed index
// file becomes, here, NumShards independently sorted shard files per
// kind (sort.go); the query engine does not use shardOf and searches every
// shard file of a kind.
package rwhois

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// countingReader tracks how many bytes have been pulled from the
// underlying reader, so a caller using a bufio.Reader on top can recover
// the exact file offset of the next unconsumed byte via n - Buffered().
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// IndexStats summarizes one BuildIndexes run.
type IndexStats struct {
	DataFilesRead int
	RecordsRead   int
	IndexLines    int
}

// indexedKinds returns the set of FileKind the class's attributes
// require, expanding IndexAll, mirroring build_index_list's traversal of
// the class's attribute list (index_file.c).
func indexedKinds(c *Class) []FileKind {
	seen := map[FileKind]bool{}
	var out []FileKind
	add := func(k FileKind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, a := range c.Attributes {
		switch a.Index {
		case IndexExact:
			add(FileExactIndex)
		case IndexCIDR:
			add(FileCIDRIndex)
		case IndexSoundex:
			add(FileSoundexIndex)
		case IndexAll:
			add(FileExactIndex)
			add(FileCIDRIndex)
			add(FileSoundexIndex)
		}
	}
	return out
}

// BuildIndexes reads every record of dataFiles, indexes it per the
// class's schema, and atomically publishes the resulting shard index
// files through reg, locking the data files it read, and removing
// the index files it superseded immediately. tmpDir holds the
// external-sort spill files and is the caller's to clean up on failure; on
// success all spill files have already been removed.
func BuildIndexes(reg *FileRegistry, class *Class, dataFiles []*FileDescriptor, tmpDir string, cfg Config) (IndexStats, error) {
	stats, stale, err := buildIndexes(reg, class, dataFiles, tmpDir, cfg)
	if err != nil {
		return stats, err
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, fd := range stale {
		if err := os.Remove(reg.FilePath(fd)); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("could not remove superseded index file")
		}
	}
	return stats, nil
}

// buildIndexes does the rebuild-and-publish work of BuildIndexes but
// leaves deleting the superseded index files to its caller, so Repack can
// apply its own grace-delay/no-delete policy to them.
func buildIndexes(reg *FileRegistry, class *Class, dataFiles []*FileDescriptor, tmpDir string, cfg Config) (IndexStats, []*FileDescriptor, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	kinds := indexedKinds(class)
	if len(kinds) == 0 {
		// Nothing to index, but the data files passed in are still
		// considered published: lock them so appendRecordToDataFile moves
		// on to a fresh file instead of appending forever.
		lockIDs := make([]int, 0, len(dataFiles))
		for _, fd := range dataFiles {
			lockIDs = append(lockIDs, fd.FileNo)
		}
		return IndexStats{}, nil, reg.ModifyFileList(nil, nil, nil, lockIDs, nil)
	}

	accs := make(map[FileKind][]*shardAccumulator, len(kinds))
	for _, k := range kinds {
		shards := make([]*shardAccumulator, cfg.NumShards)
		for s := range shards {
			shards[s] = newShardAccumulator(tmpDir, k, s)
		}
		accs[k] = shards
	}

	var stats IndexStats

	for _, fd := range dataFiles {
		path := reg.FilePath(fd)
		f, err := os.Open(path)
		if err != nil {
			return stats, nil, newErr(KindStorage, "open data file for indexing: "+path, err)
		}

		if _, err := f.Seek(fileHeaderSize, io.SeekStart); err != nil {
			f.Close()
			return stats, nil, newErr(KindStorage, "seek past data file header: "+path, err)
		}
		cr := &countingReader{r: f, n: fileHeaderSize}
		br := bufio.NewReader(cr)

		for {
			startOffset := cr.n - int64(br.Buffered())
			anon, result, err := ParseRecord(br)
			if err != nil {
				f.Close()
				return stats, nil, err
			}
			if result == ParseEOF {
				break
			}
			if result == ParseDeleted {
				continue
			}

			stats.RecordsRead++

			for _, pair := range anon.Pairs {
				attr := class.Attribute(pair.Name)
				if attr == nil || attr.Index == IndexNone {
					continue
				}
				for _, kv := range indexValuesForAttr(attr, pair.Value) {
					shard := shardOf(kv.Value, cfg.ShardAlgorithm, cfg.NumShards)
					entry := IndexEntry{
						Offset:      startOffset,
						DataFileNo:  fd.FileNo,
						AttributeID: attr.GlobalID,
						Value:       kv.Value,
					}
					if err := accs[kv.Kind][shard].add(entry); err != nil {
						f.Close()
						return stats, nil, err
					}
					stats.IndexLines++
				}
			}
		}
		f.Close()
		stats.DataFilesRead++
	}

	var add []*FileDescriptor
	for _, k := range kinds {
		for shard, acc := range accs[k] {
			fdesc := reg.NewFileTemplate(k, class.Name)
			if cfg.NumShards > 1 {
				fdesc.Filename = shardFileName(fdesc.Filename, shard)
			}
			path := reg.FilePath(fdesc)
			n, err := writeIndexShardFile(path, acc, cfg, shard)
			if err != nil {
				return stats, nil, err
			}
			info, err := os.Stat(path)
			if err != nil {
				return stats, nil, newErr(KindStorage, "stat new index file: "+path, err)
			}
			fdesc.Size = info.Size()
			fdesc.NumRecs = n
			add = append(add, fdesc)
		}
	}
	log.WithFields(logrus.Fields{
		"class":       class.Name,
		"data_files":  stats.DataFilesRead,
		"records":     stats.RecordsRead,
		"index_lines": stats.IndexLines,
	}).Info("indexing complete")

	// Replace whatever index files the rebuilt kinds previously published;
	// the data file descriptors themselves are untouched aside from being
	// locked. Deleting the physical index files is left to the caller.
	var stale []*FileDescriptor
	for _, k := range kinds {
		stale = append(stale, reg.FilesOfKind(k)...)
	}

	// Publishing a data file's indexes closes it out: once indexed, its
	// byte ranges are append-only and otherwise immutable (spec.md §4.2,
	// §5), so every data file this run read is flipped to Lock=true here.
	lockIDs := make([]int, 0, len(dataFiles))
	for _, fd := range dataFiles {
		lockIDs = append(lockIDs, fd.FileNo)
	}

	if err := reg.ModifyFileList(add, stale, nil, lockIDs, nil); err != nil {
		return stats, nil, err
	}
	return stats, stale, nil
}

func writeIndexShardFile(path string, acc *shardAccumulator, cfg Config, shard int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, newErr(KindStorage, "create index file: "+path, err)
	}
	hdr := fileHeader{Version: 1, Shard: cfg.ShardAlgorithm}
	hdrBytes, err := hdr.encode()
	if err != nil {
		f.Close()
		return 0, err
	}
	if _, err := f.Write(hdrBytes); err != nil {
		f.Close()
		return 0, newErr(KindStorage, "write index file header: "+path, err)
	}

	w := bufio.NewWriter(f)
	n, err := acc.finalize(w)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("finalize shard %d of %s: %w", shard, path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, newErr(KindStorage, "flush index file: "+path, err)
	}
	if cfg.SyncWrites {
		if err := f.Sync(); err != nil {
			f.Close()
			return 0, newErr(KindStorage, "sync index file: "+path, err)
		}
	}
	return n, f.Close()
}
