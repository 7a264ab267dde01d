// Package fs abstracts the directory operations used around mapped streams
// so that tests can inject failures.
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility that fails selected operations
//
// Production code uses fs.Default:
//
//	if err := fs.Default.Rename(tmp, final); err != nil { ... }
//
// Tests swap in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(fs.OpRename, fs.Fault{Pattern: "data.bin"})
//
// Opening, mapping and flushing files is handled by internal/mmap, which
// has its own fault-injecting provider.
package fs
