// Package checked provides overflow-checked address arithmetic. Every
// function reports ok = false instead of wrapping around the address space.
package checked

import "math"

// Add returns a+b.
func Add(a, b uintptr) (uintptr, bool) {
	sum := a + b
	return sum, sum >= a
}

// Sum adds every term.
func Sum(terms ...uintptr) (uintptr, bool) {
	var total uintptr
	for _, t := range terms {
		var ok bool
		if total, ok = Add(total, t); !ok {
			return 0, false
		}
	}
	return total, true
}

// Mul returns a*b.
func Mul(a, b uintptr) (uintptr, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > ^uintptr(0)/b {
		return 0, false
	}
	return a * b, true
}

// Offset moves base by a signed delta.
//
//	Offset(0x1000, 16)  = 0x1010, true
//	Offset(0x1000, -16) = 0x0ff0, true
//	Offset(8, -16)      = 0, false
func Offset(base uintptr, delta int) (uintptr, bool) {
	if delta >= 0 {
		return Add(base, uintptr(delta))
	}
	// -(delta+1)+1 avoids negating math.MinInt.
	d := uintptr(-(delta + 1)) + 1
	if d > base {
		return 0, false
	}
	return base - d, true
}

// ToInt converts n to a non-negative int.
func ToInt(n uintptr) (int, bool) {
	if uint64(n) > math.MaxInt {
		return 0, false
	}
	return int(n), true
}
