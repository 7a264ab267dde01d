package mmapstream

import (
	"errors"
	"time"
)

// Close flushes and releases the view, the mapping and the file, in that
// order. Every step is attempted even if an earlier one fails; failures are
// logged and returned joined. Close is idempotent: later calls return nil.
func (s *Stream) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	start := time.Now()

	var errs []error
	step := func(what string, err error) {
		if err == nil {
			return
		}
		s.logger.Warn("close step failed", "path", s.name, "step", what, "error", err)
		errs = append(errs, err)
	}

	if s.writable && s.view.Valid() {
		step("flush view", s.view.Flush())
	}
	if s.view != nil {
		step("release view", s.view.Release())
	}
	if s.mapping != nil {
		step("close mapping", s.mapping.Close())
	}
	if s.writable && s.file.Valid() {
		step("flush file", s.p.FlushFile(s.file))
	}
	step("close file", s.file.Close())

	err := errors.Join(errs...)
	s.metrics.RecordClose(time.Since(start), err)
	s.logger.LogClose(s.name, s.size, err)
	return err
}
