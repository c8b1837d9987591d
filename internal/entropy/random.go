// Package entropy provides fresh run seeds from crypto/rand.
// Everything after seeding draws from the run's own deterministic generator.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"
)

// Seed returns a positive int64 seed. Falls back to the clock if the system
// entropy source fails.
func Seed() int64 {
	for {
		s := seedFrom(readUint64())
		if s != 0 {
			return s
		}
	}
}

func readUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto/rand failed, seeding from clock", "error", err)
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// seedFrom masks n to a non-negative int64; 0 means draw again.
func seedFrom(n uint64) int64 {
	return int64(n &^ (1 << 63))
}
