package debug

import (
	"fmt"
	"strings"
)

const bytesPerLine = 16

// HexDump renders data that was read at addr, 16 bytes per line.
func HexDump(addr uint64, data []byte) string {
	var b strings.Builder

	for off := 0; off < len(data); off += bytesPerLine {
		end := min(off+bytesPerLine, len(data))

		if off > 0 {
			b.WriteByte('\n')
		}

		fmt.Fprintf(&b, "0x%016x:", addr+uint64(off))
		for _, c := range data[off:end] {
			fmt.Fprintf(&b, " %02x", c)
		}
	}

	return b.String()
}
