package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by an injected fault.
var ErrInjected = errors.New("fs: injected fault")

// Op identifies a FileSystem method.
type Op string

const (
	OpStat     Op = "stat"
	OpMkdirAll Op = "mkdir"
	OpRemove   Op = "remove"
	OpRename   Op = "rename"
)

// Fault defines specific failure behavior.
type Fault struct {
	Pattern string // Fails only paths containing Pattern. Empty matches all.
	Err     error  // Defaults to ErrInjected.
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules map[Op]Fault
	calls map[Op]int
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[Op]Fault),
		calls: make(map[Op]int),
	}
}

// AddRule makes op fail for matching paths until the rule is cleared.
func (f *FaultyFS) AddRule(op Op, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[op] = fault
}

// ClearRules removes all rules.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.rules)
}

// Count returns how often op was called, failed calls included.
func (f *FaultyFS) Count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyFS) check(op Op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	rule, ok := f.rules[op]
	if !ok || !strings.Contains(path, rule.Pattern) {
		return nil
	}
	if rule.Err != nil {
		return rule.Err
	}
	return &os.PathError{Op: string(op), Path: path, Err: ErrInjected}
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	if err := f.check(OpStat, name); err != nil {
		return nil, err
	}
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, newpath); err != nil {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}
