// Repack: consolidate a class's same-kind index shard files into fewer,
// larger ones.
//
// Grounded on tools/rwhois_repack/rwhois_repack.c's repack_index_files:
// group same-kind index files, concatenate (cat) each group's entries,
// re-sort into one file per kind/shard, publish through the registry, and
// unlink the superseded files after a short grace delay so an in-flight
// reader that opened one just before the swap still finishes cleanly.
// Here "concatenate + re-sort" is a rebuild, from all of the class's data
// files, of each index kind with at least two files passing the caller's
// size/substring filters, per spec.md §4.9/§4.9a.
package rwhois

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RepackOptions mirrors rwhois_repack's command-line switches.
type RepackOptions struct {
	SizeThreshold int64         // skip files larger than this (bytes); 0 = no limit
	Substring     string        // skip files whose path does not contain this; "" = no filter
	DryRun        bool          // report what would change, touch nothing
	NoDelete      bool          // keep superseded files on disk after the swap (-d)
	DeleteWait    time.Duration // grace delay before unlinking superseded files
	Verbose       bool
}

func (o RepackOptions) withDefaults() RepackOptions {
	if o.DeleteWait == 0 {
		o.DeleteWait = 2 * time.Second
	}
	return o
}

// RepackStats summarizes one Repack run.
type RepackStats struct {
	FilesConsidered int
	FilesConsolidated int
	FilesDeleted    int
}

// filterIndexFiles applies the size and substring filters repack_index_files
// uses to decide which index files are eligible for consolidation.
func filterIndexFiles(reg *FileRegistry, fds []*FileDescriptor, opts RepackOptions) []*FileDescriptor {
	var out []*FileDescriptor
	for _, fd := range fds {
		if opts.SizeThreshold > 0 && fd.Size > opts.SizeThreshold {
			continue
		}
		if opts.Substring != "" && !strings.Contains(reg.FilePath(fd), opts.Substring) {
			continue
		}
		out = append(out, fd)
	}
	return out
}

// Repack consolidates class's eligible index files within reg: for each
// indexed kind, if two or more of its shard files pass the filters, it
// rebuilds those kinds' indexes from scratch (via buildIndexesForKinds,
// which publishes the new files and returns the superseded ones) and,
// unless DryRun or NoDelete, removes the superseded files after DeleteWait.
// FilesConsolidated counts the eligible files of the kinds rebuilt (or, in
// a dry run, that would be rebuilt).
//
// A kind with fewer than two eligible files is left untouched — there is
// nothing to consolidate, mirroring repack_index_files's dl_list_size(...)
// < 2 short-circuit.
func Repack(reg *FileRegistry, class *Class, tmpDir string, opts RepackOptions, cfg Config) (RepackStats, error) {
	opts = opts.withDefaults()
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	var stats RepackStats
	var toRebuild []FileKind
	for _, k := range indexedKinds(class) {
		all := reg.FilesOfKind(k)
		eligible := filterIndexFiles(reg, all, opts)
		stats.FilesConsidered += len(eligible)
		if len(eligible) < 2 {
			continue
		}
		toRebuild = append(toRebuild, k)
		stats.FilesConsolidated += len(eligible)
	}

	if len(toRebuild) == 0 {
		if opts.Verbose {
			log.WithField("class", class.Name).Info("no index files eligible for repack")
		}
		return stats, nil
	}

	if opts.Verbose {
		log.WithFields(logrus.Fields{
			"class": class.Name,
			"kinds": toRebuild,
		}).Info("repacking index files")
	}

	if opts.DryRun {
		return stats, nil
	}

	// Rebuilding every indexed kind from the data files is broader than
	// "just the filtered files" — the filters only decide *whether* a kind
	// is due for a rebuild, matching the original's per-kind granularity
	// (it can't selectively re-sort a subset of a kind's files either;
	// sort_index_files always consumes the whole concatenated group).
	dataFiles := reg.FilesOfKind(FileData)
	_, stale, err := buildIndexesForKinds(reg, class, dataFiles, toRebuild, tmpDir, cfg)
	if err != nil {
		return stats, err
	}

	if opts.NoDelete {
		return stats, nil
	}
	time.Sleep(opts.DeleteWait)
	for _, fd := range stale {
		if err := os.Remove(reg.FilePath(fd)); err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).Warn("could not remove superseded index file")
			}
			continue
		}
		stats.FilesDeleted++
	}
	return stats, nil
}

// buildIndexesForKinds is buildIndexes restricted to the attributes that
// feed a subset of kinds, used by Repack so that a kind it does not rebuild
// keeps its files (BuildIndexes itself always rebuilds every indexed kind
// of the class). An attribute indexed ALL still feeds all three kinds, so
// when the class has one, every kind is rebuilt.
func buildIndexesForKinds(reg *FileRegistry, class *Class, dataFiles []*FileDescriptor, kinds []FileKind, tmpDir string, cfg Config) (IndexStats, []*FileDescriptor, error) {
	restricted := &Class{
		Name:       class.Name,
		AuthArea:   class.AuthArea,
		DBDir:      class.DBDir,
		Attributes: filterAttributesByKind(class.Attributes, kinds),
	}
	return buildIndexes(reg, restricted, dataFiles, tmpDir, cfg)
}

func filterAttributesByKind(attrs []*AttributeDef, kinds []FileKind) []*AttributeDef {
	want := map[FileKind]bool{}
	for _, k := range kinds {
		want[k] = true
	}
	var out []*AttributeDef
	for _, a := range attrs {
		switch a.Index {
		case IndexExact:
			if want[FileExactIndex] {
				out = append(out, a)
			}
		case IndexCIDR:
			if want[FileCIDRIndex] {
				out = append(out, a)
			}
		case IndexSoundex:
			if want[FileSoundexIndex] {
				out = append(out, a)
			}
		case IndexAll:
			if want[FileExactIndex] || want[FileCIDRIndex] || want[FileSoundexIndex] {
				out = append(out, a)
			}
		}
	}
	return out
}
