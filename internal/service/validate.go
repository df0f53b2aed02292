package service

import (
	"fmt"
	"regexp"

	"github.com/sakif/microblog/internal/apperror"
)

// Field constraints, shared by registration and the per-field profile
// updates (updates revalidate against the same rules as creation).
const (
	minUsernameLength = 5
	maxUsernameLength = 255
	minEmailLength    = 8
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordLength = 255
)

// emailPattern is the address shape the API has always accepted: local part,
// "@", dot-separated domain labels. Deliberately looser than full RFC 5322.
var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

// validateLength produces the schema-validator wording clients already parse:
// `"field" is not allowed to be empty`, `"field" length must be at least N
// characters long`, and so on.
func validateLength(field, value string, min, max int) error {
	if value == "" {
		return apperror.ValidationFailed(field, fmt.Sprintf(`"%s" is not allowed to be empty`, field))
	}
	if len(value) < min {
		return apperror.ValidationFailed(field,
			fmt.Sprintf(`"%s" length must be at least %d characters long`, field, min))
	}
	if len(value) > max {
		return apperror.ValidationFailed(field,
			fmt.Sprintf(`"%s" length must be less than or equal to %d characters long`, field, max))
	}
	return nil
}

func validateUsername(username string) error {
	return validateLength("username", username, minUsernameLength, maxUsernameLength)
}

func validateEmail(email string) error {
	if err := validateLength("email", email, minEmailLength, maxEmailLength); err != nil {
		return err
	}
	if !emailPattern.MatchString(email) {
		return apperror.ValidationFailed("email", `"email" must be a valid email`)
	}
	return nil
}

func validatePassword(password string) error {
	return validateLength("password", password, minPasswordLength, maxPasswordLength)
}
