// Package ledger turns per-source byte counters from one measurement window
// into write/read amplification figures and checks that the two independent
// write-amplification estimates agree ("the ledger closes").
package ledger

import "fmt"

// Counters holds the byte counters of one measurement window.
type Counters struct {
	WALBytes             uint64 // bytes appended to the write-ahead log
	FlushBytes           uint64 // bytes written by memtable flushes
	CompactionReadBytes  uint64 // bytes read by compactions
	CompactionWriteBytes uint64 // bytes written by compactions
	UserWriteBytes       uint64 // logical bytes written by the application
	DeviceReadBytes      uint64 // bytes read from the block device
	DeviceWriteBytes     uint64 // bytes written to the block device
}

// Merge overlays every non-zero counter of o onto c. Later sources win, so a
// statistics dump can refine values scraped from a log.
func (c *Counters) Merge(o Counters) {
	overlay := func(dst *uint64, v uint64) {
		if v != 0 {
			*dst = v
		}
	}
	overlay(&c.WALBytes, o.WALBytes)
	overlay(&c.FlushBytes, o.FlushBytes)
	overlay(&c.CompactionReadBytes, o.CompactionReadBytes)
	overlay(&c.CompactionWriteBytes, o.CompactionWriteBytes)
	overlay(&c.UserWriteBytes, o.UserWriteBytes)
	overlay(&c.DeviceReadBytes, o.DeviceReadBytes)
	overlay(&c.DeviceWriteBytes, o.DeviceWriteBytes)
}

// Add accumulates o into c. Used to sum captures of consecutive windows.
func (c *Counters) Add(o Counters) {
	c.WALBytes += o.WALBytes
	c.FlushBytes += o.FlushBytes
	c.CompactionReadBytes += o.CompactionReadBytes
	c.CompactionWriteBytes += o.CompactionWriteBytes
	c.UserWriteBytes += o.UserWriteBytes
	c.DeviceReadBytes += o.DeviceReadBytes
	c.DeviceWriteBytes += o.DeviceWriteBytes
}

func (c Counters) String() string {
	return fmt.Sprintf("wal=%d flush=%d compaction_read=%d compaction_write=%d user_write=%d device_read=%d device_write=%d",
		c.WALBytes, c.FlushBytes, c.CompactionReadBytes, c.CompactionWriteBytes,
		c.UserWriteBytes, c.DeviceReadBytes, c.DeviceWriteBytes)
}
