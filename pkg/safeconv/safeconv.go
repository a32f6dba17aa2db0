// Package safeconv converts between integer types, panicking where a value
// cannot be represented. Use it only where overflow is logically impossible.
package safeconv

// MaxInt is the largest int on this platform.
const MaxInt = int(^uint(0) >> 1)

// Unsigned is any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ToInt converts an unsigned value to int, panicking when it does not fit.
func ToInt[T Unsigned](v T) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: unsigned to int overflow")
	}

	return int(v)
}

// ToUint converts int to uint, panicking on negative values.
func ToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}
