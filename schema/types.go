package schema

import "errors"

// UserID identifies a console user.
type UserID string

// ValidateUserID checks that the id is non-empty and uses the allowed alphabet.
func ValidateUserID(id UserID) error {
	if id == "" {
		return errors.New("user id is empty")
	}
	for _, r := range string(id) {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return errors.New("user id must match [a-z0-9._-]")
		}
	}
	return nil
}
