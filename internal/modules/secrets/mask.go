// Package secrets прячет найденные значения перед тем, как они попадут в отчет.
package secrets

// Mask returns "***" for values of 8 runes or fewer, otherwise the first four
// runes, "****" and the last four. The result never contains the middle part.
func Mask(value string) string {
	r := []rune(value)
	if len(r) <= 8 {
		return "***"
	}
	return string(r[:4]) + "****" + string(r[len(r)-4:])
}
