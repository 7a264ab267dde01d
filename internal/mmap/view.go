package mmap

// View is a Mapping projected into the process address space.
// It does not outlive its parent Mapping.
type View struct {
	mapping  *Mapping
	data     []byte
	addr     uintptr // base address of data; only set on windows
	offset   int64
	access   Access
	p        Provider
	released bool
}

func newView(p Provider, m *Mapping, data []byte, offset int64, access Access) *View {
	return &View{mapping: m, data: data, offset: offset, access: access, p: p}
}

// Bytes returns the mapped memory.
// Warning: The slice is valid only until Release is called.
func (v *View) Bytes() []byte {
	if v == nil || v.released {
		return nil
	}
	return v.data
}

// Len returns the number of mapped bytes.
func (v *View) Len() int {
	if v == nil || v.released {
		return 0
	}
	return len(v.data)
}

// Offset returns the file offset the view starts at.
func (v *View) Offset() int64 {
	return v.offset
}

// Mapping returns the mapping object backing the view.
func (v *View) Mapping() *Mapping {
	return v.mapping
}

// Valid reports whether the view has not been released.
// A zero-length view is valid even though it maps no memory.
func (v *View) Valid() bool {
	return v != nil && !v.released
}

// Writable reports whether writes through Bytes reach the file.
func (v *View) Writable() bool {
	return v.access == AccessReadWrite
}

// Flush writes the whole view back to the file.
func (v *View) Flush() error {
	return v.FlushRange(0, v.Len())
}

// FlushRange writes length bytes starting at offset back to the file.
// It is a no-op on released or read-only views.
func (v *View) FlushRange(offset, length int) error {
	if !v.Valid() || !v.Writable() {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > len(v.data) {
		return newError("flush view", ErrInvalidRange)
	}
	if length == 0 {
		return nil
	}
	return v.p.FlushView(v, offset, length)
}

// Release unmaps the view. It is idempotent; the view is invalid afterwards
// even when the unmap call fails.
func (v *View) Release() error {
	if v == nil || v.released {
		return nil
	}
	err := v.p.Unmap(v)
	v.released = true
	v.data = nil
	return err
}

// Advise provides hints to the kernel about how the view will be accessed.
func (v *View) Advise(pattern AccessPattern) error {
	if !v.Valid() {
		return ErrClosed
	}
	if len(v.data) == 0 {
		return nil
	}
	return osAdvise(v.data, pattern)
}
