// Package resource bounds the memory, concurrency and IO throughput used by
// background storage work such as backups and restores.
package resource
