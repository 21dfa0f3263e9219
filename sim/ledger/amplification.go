package ledger

// Amplification holds the ratios derived from a Counters record. All ratios
// are relative to user-written bytes.
type Amplification struct {
	WAStat    float64 // (WAL + flush + compaction write) / user write
	WADevice  float64 // device write / user write
	RAComp    float64 // compaction read / user write
	RARuntime float64 // device read / user write

	// Components of WAStat.
	WALFactor        float64
	FlushFactor      float64
	CompactionFactor float64
}

// CalculateWARA derives amplification ratios. A window with zero user
// writes is valid and yields all-zero ratios.
func CalculateWARA(c Counters) Amplification {
	if c.UserWriteBytes == 0 {
		return Amplification{}
	}
	user := float64(c.UserWriteBytes)
	a := Amplification{
		WALFactor:        float64(c.WALBytes) / user,
		FlushFactor:      float64(c.FlushBytes) / user,
		CompactionFactor: float64(c.CompactionWriteBytes) / user,
		WADevice:         float64(c.DeviceWriteBytes) / user,
		RAComp:           float64(c.CompactionReadBytes) / user,
		RARuntime:        float64(c.DeviceReadBytes) / user,
	}
	a.WAStat = float64(c.WALBytes+c.FlushBytes+c.CompactionWriteBytes) / user
	return a
}
