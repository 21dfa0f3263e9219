package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/putrate-sim/putrate-sim/sim/internal/testutil"
)

const rocksDBLog = `2026/10/01-10:00:00.000000 7f2b LOG header
** DB Stats **
Uptime(secs): 60.0 total, 60.0 interval
Cumulative writes: 10M writes, 10M keys, 9876K commit groups, 1.0 writes per commit group, ingest: 0.50 GB, 8.53 MB/s
Cumulative WAL: 10M writes, 0 syncs, 10000000.00 writes per sync, written: 0.50 GB, 8.53 MB/s
Flush(GB): cumulative 0.400, interval 0.400
Cumulative compaction: 1.00 GB write, 17.07 MB/s write, 0.80 GB read, 13.65 MB/s read, 12.3 seconds
** DB Stats **
Uptime(secs): 120.0 total, 60.0 interval
Cumulative writes: 20M writes, 20M keys, 19M commit groups, 1.0 writes per commit group, ingest: 1.00 GB, 8.53 MB/s
Cumulative WAL: 20M writes, 0 syncs, 20000000.00 writes per sync, written: 1024.00 MB, 8.53 MB/s
Flush(GB): cumulative 0.750, interval 0.350
Cumulative compaction: 2.25 GB write, 19.20 MB/s write, 1.50 GB read, 12.80 MB/s read, 25.0 seconds
`

const iostatCapture = `Linux 6.1.0 (bench-host) 	10/01/2026 	_x86_64_	(16 CPU)

Device             tps    kB_read/s    kB_wrtn/s    kB_dscd/s    kB_read    kB_wrtn    kB_dscd
nvme0n1         100.00       100.00       200.00         0.00    9999999    9999999          0
sda               1.00         1.00         1.00         0.00        100        100          0

Device             tps    kB_read/s    kB_wrtn/s    kB_dscd/s    kB_read    kB_wrtn    kB_dscd
nvme0n1         120.00      1024.00      2048.00         0.00       1024       2048          0
sda               1.00         1.00         1.00         0.00          1          1          0

Device             tps    kB_read/s    kB_wrtn/s    kB_dscd/s    kB_read    kB_wrtn    kB_dscd
nvme0n1         120.00      1024.00      2048.00         0.00       1024       2048          0
sda               1.00         1.00         1.00         0.00          1          1          0
`

func TestParseRocksDBLog_LastDumpWins(t *testing.T) {
	c, err := ParseRocksDBLog(testutil.WriteTempFile(t, "LOG", rocksDBLog))

	require.NoError(t, err)
	assert.Equal(t, uint64(1<<30), c.UserWriteBytes)
	assert.Equal(t, uint64(1<<30), c.WALBytes)
	assert.Equal(t, uint64(0.75*(1<<30)), c.FlushBytes)
	assert.Equal(t, uint64(2.25*(1<<30)), c.CompactionWriteBytes)
	assert.Equal(t, uint64(1.5*(1<<30)), c.CompactionReadBytes)
	assert.Zero(t, c.DeviceWriteBytes)
}

func TestParseRocksDBLog_Errors(t *testing.T) {
	_, err := ParseRocksDBLog(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ParseRocksDBLog(testutil.WriteTempFile(t, "LOG", "nothing useful here\n"))
	assert.ErrorIs(t, err, ErrNoCounters)

	_, err = ParseRocksDBLog(testutil.WriteTempFile(t, "LOG", "Cumulative writes: 1 writes, ingest: 1.2.3 GB, 1 MB/s\n"))
	assert.Error(t, err)
}

func TestParseStatisticsJSON(t *testing.T) {
	path := testutil.WriteTempFile(t, "stats.json", `{
  "rocksdb.wal.bytes": 1000,
  "rocksdb.flush.write.bytes": 2000,
  "rocksdb.compact.read.bytes": 2500,
  "rocksdb.compact.write.bytes": 3000,
  "rocksdb.bytes.written": 1000,
  "rocksdb.block.cache.miss": 42
}`)

	c, err := ParseStatisticsJSON(path)

	require.NoError(t, err)
	assert.Equal(t, Counters{
		WALBytes: 1000, FlushBytes: 2000, CompactionReadBytes: 2500,
		CompactionWriteBytes: 3000, UserWriteBytes: 1000,
	}, c)
}

func TestParseStatisticsJSON_RenamedTickerPrefersCurrentName(t *testing.T) {
	// GIVEN a dump carrying both the current and the legacy name for the
	// compaction counters, with different values
	path := testutil.WriteTempFile(t, "stats.json", `{
  "rocksdb.bytes.written": 100,
  "rocksdb.compaction.read.bytes": 999,
  "rocksdb.compact.read.bytes": 111,
  "rocksdb.compaction.write.bytes": 888,
  "rocksdb.compact.write.bytes": 222
}`)

	// WHEN parsed repeatedly
	for i := 0; i < 50; i++ {
		c, err := ParseStatisticsJSON(path)

		// THEN the first listed name always wins
		require.NoError(t, err)
		require.Equal(t, uint64(111), c.CompactionReadBytes, "iteration %d", i)
		require.Equal(t, uint64(222), c.CompactionWriteBytes, "iteration %d", i)
	}

	// AND a legacy name alone is still accepted
	c, err := ParseStatisticsJSON(testutil.WriteTempFile(t, "legacy.json", `{"rocksdb.compaction.read.bytes": 999}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(999), c.CompactionReadBytes)
}

func TestParseStatisticsJSON_Errors(t *testing.T) {
	_, err := ParseStatisticsJSON(testutil.WriteTempFile(t, "s.json", `{"rocksdb.wal.bytes": `))
	assert.Error(t, err)

	_, err = ParseStatisticsJSON(testutil.WriteTempFile(t, "s.json", `{"rocksdb.block.cache.miss": 1}`))
	assert.ErrorIs(t, err, ErrNoCounters)

	_, err = ParseStatisticsJSON(testutil.WriteTempFile(t, "s.json", `{"rocksdb.wal.bytes": -5}`))
	assert.Error(t, err)
}

func TestParseIostat_DiscardsSinceBootReport(t *testing.T) {
	// GIVEN three reports, the first covering time since boot
	path := testutil.WriteTempFile(t, "iostat.txt", iostatCapture)

	// WHEN parsed for one device
	c, err := ParseIostat(path, "nvme0n1")

	// THEN the two interval reports are summed
	require.NoError(t, err)
	assert.Equal(t, uint64(2*1024*1024), c.DeviceReadBytes)
	assert.Equal(t, uint64(2*2048*1024), c.DeviceWriteBytes)
}

func TestParseIostat_AllDevicesAndSingleReport(t *testing.T) {
	c, err := ParseIostat(testutil.WriteTempFile(t, "iostat.txt", iostatCapture), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2*1025*1024), c.DeviceReadBytes)

	single := `Device:            tps    MB_read/s    MB_wrtn/s    MB_read    MB_wrtn
sdb               5.00         1.00         2.00         10         20
`
	c, err = ParseIostat(testutil.WriteTempFile(t, "iostat.txt", single), "sdb")
	require.NoError(t, err)
	assert.Equal(t, uint64(10<<20), c.DeviceReadBytes)
	assert.Equal(t, uint64(20<<20), c.DeviceWriteBytes)
}

func TestParseIostat_Errors(t *testing.T) {
	_, err := ParseIostat(testutil.WriteTempFile(t, "iostat.txt", iostatCapture), "nvme9n9")
	assert.ErrorIs(t, err, ErrNoCounters)

	_, err = ParseIostat(testutil.WriteTempFile(t, "iostat.txt", "Device tps r/s w/s\nsda 1 2 3\n"), "")
	assert.Error(t, err)
}
