package calc

import "strconv"

// FormatCanonical renders v as the shortest plain decimal that parses back to
// exactly v. It never uses exponent notation, so the result can be fed back
// into Tokenize.
func FormatCanonical(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDisplay rounds v to precision significant digits for display.
// A non-positive precision falls back to FormatCanonical.
func FormatDisplay(v float64, precision int) string {
	if precision <= 0 {
		return FormatCanonical(v)
	}
	s := strconv.FormatFloat(v, 'g', precision, 64)
	if s == "-0" {
		return "0"
	}
	return s
}
