package mmap

import (
	"errors"
	"os"
	"sync"
)

// Op names a Provider operation for fault injection.
type Op string

// Provider operations.
const (
	OpOpenFile      Op = "OpenFile"
	OpFileSize      Op = "FileSize"
	OpCreateMapping Op = "CreateMapping"
	OpMapView       Op = "MapView"
	OpFlushView     Op = "FlushView"
	OpFlushFile     Op = "FlushFile"
	OpUnmap         Op = "Unmap"
	OpCloseMapping  Op = "CloseMapping"
	OpCloseFile     Op = "CloseFile"
)

// Fault defines specific failure behavior.
type Fault struct {
	After int   // Succeed this many calls before failing.
	Times int   // Number of failures to inject. 0 fails forever.
	Err   error // Defaults to ErrInjected.
}

// ErrInjected is the default error returned by FaultyProvider.
var ErrInjected = errors.New("mmap: injected fault")

// FaultyProvider is a Provider wrapper that can inject errors and records
// every call in order.
//
// Acquiring operations and flushes fail without touching the wrapped
// provider. Releasing operations (Unmap, CloseMapping, CloseFile) still
// release the resource and then report the fault, so tests never leak
// mappings or file locks.
type FaultyProvider struct {
	Provider Provider

	mu     sync.Mutex
	rules  map[Op]Fault
	counts map[Op]int
	failed map[Op]int
	calls  []Op
}

// NewFaultyProvider creates a FaultyProvider wrapping p (or OS if nil).
func NewFaultyProvider(p Provider) *FaultyProvider {
	if p == nil {
		p = OS
	}
	return &FaultyProvider{
		Provider: p,
		rules:    make(map[Op]Fault),
		counts:   make(map[Op]int),
		failed:   make(map[Op]int),
	}
}

// AddRule installs a fault for op, replacing any previous rule.
func (f *FaultyProvider) AddRule(op Op, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[op] = fault
	f.counts[op] = 0
	f.failed[op] = 0
}

// ClearRules removes every installed fault.
func (f *FaultyProvider) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[Op]Fault)
}

// Calls returns the operations invoked so far, in order.
func (f *FaultyProvider) Calls() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Op, len(f.calls))
	copy(out, f.calls)
	return out
}

// Count returns how many times op was invoked.
func (f *FaultyProvider) Count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls.
func (f *FaultyProvider) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FaultyProvider) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, op)

	rule, ok := f.rules[op]
	if !ok {
		return nil
	}
	f.counts[op]++
	if f.counts[op] <= rule.After {
		return nil
	}
	if rule.Times > 0 && f.failed[op] >= rule.Times {
		return nil
	}
	f.failed[op]++

	if rule.Err != nil {
		return rule.Err
	}
	return ErrInjected
}

func (f *FaultyProvider) OpenFile(path string, access Access, perm os.FileMode) (*File, error) {
	if err := f.check(OpOpenFile); err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	file, err := f.Provider.OpenFile(path, access, perm)
	if err != nil {
		return nil, err
	}
	file.p = f
	return file, nil
}

func (f *FaultyProvider) FileSize(file *File) (int64, error) {
	if err := f.check(OpFileSize); err != nil {
		return 0, newError("file size", err)
	}
	return f.Provider.FileSize(file)
}

func (f *FaultyProvider) CreateMapping(file *File, prot Protection, maxSize int64) (*Mapping, error) {
	if err := f.check(OpCreateMapping); err != nil {
		return nil, newError("create mapping", err)
	}
	m, err := f.Provider.CreateMapping(file, prot, maxSize)
	if err != nil {
		return nil, err
	}
	m.p = f
	return m, nil
}

func (f *FaultyProvider) MapView(m *Mapping, access Access, offset int64, length int) (*View, error) {
	if err := f.check(OpMapView); err != nil {
		return nil, newError("map view", err)
	}
	v, err := f.Provider.MapView(m, access, offset, length)
	if err != nil {
		return nil, err
	}
	v.p = f
	return v, nil
}

func (f *FaultyProvider) FlushView(v *View, offset, length int) error {
	if err := f.check(OpFlushView); err != nil {
		return newError("flush view", err)
	}
	return f.Provider.FlushView(v, offset, length)
}

func (f *FaultyProvider) FlushFile(file *File) error {
	if err := f.check(OpFlushFile); err != nil {
		return newError("flush file", err)
	}
	return f.Provider.FlushFile(file)
}

func (f *FaultyProvider) Unmap(v *View) error {
	injected := f.check(OpUnmap)
	if err := f.Provider.Unmap(v); err != nil {
		return err
	}
	if injected != nil {
		return newError("unmap", injected)
	}
	return nil
}

func (f *FaultyProvider) CloseMapping(m *Mapping) error {
	injected := f.check(OpCloseMapping)
	if err := f.Provider.CloseMapping(m); err != nil {
		return err
	}
	if injected != nil {
		return newError("close mapping", injected)
	}
	return nil
}

func (f *FaultyProvider) CloseFile(file *File) error {
	injected := f.check(OpCloseFile)
	if err := f.Provider.CloseFile(file); err != nil {
		return err
	}
	if injected != nil {
		return newError("close file", injected)
	}
	return nil
}
