package index

import (
	"fmt"
	"time"
)

// int64Offset shifts a signed 64-bit integer into an unsigned range so
// zero-padded decimal digits sort the same as the original value,
// including negatives (which never occur for data_size but the helper
// is general).
const int64Offset = int64(1) << 62

// PadInt64 renders n as a fixed-width, zero-padded decimal string whose
// lexical order equals its numeric order.
func PadInt64(n int64) string {
	return fmt.Sprintf("%020d", n+int64Offset)
}

// PadTime renders t as RFC3339 with microsecond precision in UTC, which
// sorts lexically the same as chronologically for any two timestamps in
// the same fixed-width format.
func PadTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
