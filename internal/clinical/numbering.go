package clinical

import (
	"fmt"
	"strconv"
	"strings"
)

func prescriptionPrefix(year int) string {
	return fmt.Sprintf("RX-%d-", year)
}

// NextPrescriptionNumber follows last within year: RX-2025-0001, RX-2025-0002.
// The suffix is zero-padded to four digits and keeps growing past 9999.
func NextPrescriptionNumber(last string, year int) (string, error) {
	prefix := prescriptionPrefix(year)
	if last == "" {
		return prefix + "0001", nil
	}

	suffix, ok := strings.CutPrefix(last, prefix)
	if !ok {
		return "", fmt.Errorf("prescription number %q does not belong to %d", last, year)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return "", fmt.Errorf("prescription number %q has a malformed suffix", last)
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}
