// Package conv formats numbers without fmt or strconv, for log lines on
// the MCU.
package conv

// Utoa returns the base-10 representation of n.
func Utoa(n uint64) string {
	var buf [20]byte
	return string(utoa(buf[:], n))
}

// Itoa returns the base-10 representation of n.
func Itoa(n int64) string {
	var buf [21]byte
	if n >= 0 {
		return string(utoa(buf[:], uint64(n)))
	}
	b := utoa(buf[1:], uint64(-n))
	i := len(buf) - len(b) - 1
	buf[i] = '-'
	return string(buf[i:])
}

// Ftoa formats v with a fixed number of decimal places (at most 6),
// rounding half away from zero. NaN formats as "NaN".
func Ftoa(v float64, places int) string {
	if v != v {
		return "NaN"
	}
	if places < 0 {
		places = 0
	}
	if places > 6 {
		places = 6
	}
	neg := v < 0
	if neg {
		v = -v
	}
	scale := uint64(1)
	for i := 0; i < places; i++ {
		scale *= 10
	}
	u := uint64(v*float64(scale) + 0.5)

	var buf [32]byte
	i := len(buf)
	frac := u % scale
	for j := 0; j < places; j++ {
		i--
		buf[i] = byte('0' + frac%10)
		frac /= 10
	}
	if places > 0 {
		i--
		buf[i] = '.'
	}
	ip := utoa(buf[:i], u/scale)
	i -= len(ip)
	copy(buf[i:], ip)
	if neg && u != 0 {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// utoa writes n right-aligned into buf and returns the used tail.
func utoa(buf []byte, n uint64) []byte {
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
		return buf[i:]
	}
	for n > 0 && i > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return buf[i:]
}
