package vm

import "github.com/dustin/go-humanize"

// humanizeBytes renders a byte count the way -gc-log lines present it
// ("1.2 MB" rather than a raw integer), so GC traces stay readable across
// orders of magnitude.
func humanizeBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
