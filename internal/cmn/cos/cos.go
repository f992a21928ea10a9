// Package cos is a grab-bag of small pure helpers, grounded on the teacher's
// own cmn/cos (referenced via cos.IsErrOOS/cos.IsEOF in xact/xs/tcb.go and
// cos.ToSizeIEC in the transport/bundle corpus sample) generalized to the
// bit-arithmetic the planner and executor need.
package cos

import "math/bits"

// AlignDown16 rounds n down to the nearest multiple of 16, as §3 requires
// for per-endpoint send/recv thresholds derived from transport capabilities.
func AlignDown16(n int) int {
	return n &^ 15
}

// CeilDivide is ⌈a / b⌉, or 0 when b <= 0.
func CeilDivide(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// IsPow2 reports whether n is an exact power of two (n > 0).
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Ilog2 returns floor(log2(n)) for n > 0, used by the recursive-doubling and
// recursive-halving iterators (§4.2.2, §4.2.3) to find the base power of two.
func Ilog2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// NextPow2LE returns the largest power of two <= n, i.e. 1<<Ilog2(n).
func NextPow2LE(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 << Ilog2(n)
}

// SizeIEC formats a byte count the way the corpus' cos.ToSizeIEC does.
// Nothing in the module calls it.
func SizeIEC(n int64) string {
	const unit = 1024
	if n < unit {
		return itoa(n) + "B"
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return ftoa(float64(n)/float64(div)) + string(units[exp]) + "iB"
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func ftoa(f float64) string {
	whole := int64(f)
	frac := int64((f - float64(whole)) * 10)
	if frac < 0 {
		frac = -frac
	}
	return itoa(whole) + "." + itoa(frac)
}
