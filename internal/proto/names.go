package proto

import "fmt"

// MaxNameLength bounds both usernames and room names.
const MaxNameLength = 15

// ValidateName checks the shared character class and length bound used for
// both usernames and room names: ASCII, length 1..=MaxNameLength,
// characters restricted to [A-Za-z0-9_-].
func ValidateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	for _, c := range []byte(name) {
		if !isNameByte(c) {
			return fmt.Errorf("name may only contain letters, digits, '_' and '-'")
		}
	}
	return nil
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	default:
		return false
	}
}
