package scale

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseWeightLine parses one line from the scale's serial head into a
// kilogram value. Accepted shapes, all seen across scale firmware revisions:
//
//	"1.234"
//	"1.234 kg"
//	"ST,+0001.234,kg"   (status-prefixed continuous output)
//	"US,+0001.302,kg"   (unstable flag; the value is still a raw sample)
//
// The stability decision belongs to the Detector, so the ST/US flag is
// dropped rather than trusted.
func ParseWeightLine(line string) (float64, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0, fmt.Errorf("empty weight line")
	}

	if parts := strings.Split(s, ","); len(parts) > 1 {
		switch strings.ToUpper(strings.TrimSpace(parts[0])) {
		case "ST", "US":
			s = strings.TrimSpace(parts[1])
		default:
			return 0, fmt.Errorf("unrecognised weight line %q", line)
		}
	}

	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "kg"))
	kg, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse weight from %q: %w", line, err)
	}
	return kg, nil
}
