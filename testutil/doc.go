// Package testutil provides testing utilities for mmapstream.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic random payloads and helpers for checking
// files on disk.
//
// # Random Payloads
//
//	rng := testutil.NewRNG(seed)
//	buf := rng.Bytes(4096)      // random bytes
//	text := rng.Text(100)       // printable ASCII
//	rng.Fill(buf)               // refill in place
//
// # Files
//
//	path := testutil.TempFile(t, "data.db", payload)
//	testutil.AssertFileContents(t, path, payload)
package testutil
