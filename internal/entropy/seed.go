// Package entropy manages the run's random seeds. A run is identified by a
// single master seed; every subsystem derives its own stream from the master
// so that replaying a seed reproduces the run exactly, regardless of which
// subsystems are enabled.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
)

// Subsystem stream labels.
const (
	StreamTerrain  = "terrain"
	StreamLanguage = "language"
	StreamMobs     = "mobs"
	StreamSim      = "sim"
)

// MasterSeed returns the given seed, or draws a fresh one from the OS when
// seed is 0. Zero is reserved as "pick for me"; a drawn seed is never 0.
func MasterSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// The OS entropy source failing is not recoverable.
			panic("entropy: " + err.Error())
		}
		drawn := int64(binary.LittleEndian.Uint64(buf[:]))
		if drawn != 0 {
			slog.Info("drew fresh master seed", "seed", drawn)
			return drawn
		}
	}
}

// SubSeed derives a subsystem seed from the master seed and a stream label.
// The derivation is a fixed mixing function, so the same master always
// yields the same sub-seeds.
func SubSeed(master int64, stream string) int64 {
	h := uint64(master)
	for _, b := range []byte(stream) {
		h ^= uint64(b)
		h *= 0x100000001b3 // FNV-1a prime
	}
	return int64(mix64(h))
}

// mix64 is the splitmix64 finalizer. It spreads low-entropy inputs over the
// whole 64-bit range so adjacent master seeds produce unrelated streams.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
