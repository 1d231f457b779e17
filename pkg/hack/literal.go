package hack

import (
	"fmt"
	"strconv"
	"strings"
)

// ----------------------------------------------------------------------------
// Numeric literal parser (C3)

// ParseNumeric parses a raw A Instruction operand into its 16 bit value. It
// accepts plain decimal ("42"), hexadecimal ("0xFF"/"0XFF") and binary
// ("0b101") literals, with '_' allowed anywhere as a digit separator for
// readability (e.g. "1_000_000"). The result is always masked to the 15 bits
// an A Instruction can actually address; 'truncated' reports whether masking
// actually dropped information, so the caller can surface a non-fatal warning
// per §7 rather than silently wrapping around.
func ParseNumeric(token string) (value uint16, truncated bool, err error) {
	cleaned := strings.ReplaceAll(token, "_", "")

	var parsed int64
	switch {
	case strings.HasPrefix(cleaned, "0x") || strings.HasPrefix(cleaned, "0X"):
		parsed, err = strconv.ParseInt(cleaned[2:], 16, 64)
	case strings.HasPrefix(cleaned, "0b") || strings.HasPrefix(cleaned, "0B"):
		parsed, err = strconv.ParseInt(cleaned[2:], 2, 64)
	default:
		parsed, err = strconv.ParseInt(cleaned, 10, 64)
	}
	if err != nil {
		return 0, false, fmt.Errorf("invalid numeric literal %q: %w", token, err)
	}
	if parsed < 0 {
		return 0, false, fmt.Errorf("numeric literal %q cannot be negative", token)
	}

	masked := uint16(parsed & 0x7FFF)
	return masked, parsed != int64(masked), nil
}
