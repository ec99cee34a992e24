package commands

import (
	"regexp"
	"strings"
	"unicode/utf8"

	instoo_errors "instoo/pkg/errors"
)

const TypeUpdateProfile = "user.update_profile"

const (
	MinNicknameLength = 2
	MaxNicknameLength = 8
)

var nicknamePattern = regexp.MustCompile(`^[가-힣a-zA-Z0-9._-]+$`)

// UpdateProfileCommand edits the caller's own profile. Nil fields are left unchanged.
type UpdateProfileCommand struct {
	Nickname *string
}

func (UpdateProfileCommand) CommandType() string {
	return TypeUpdateProfile
}

// Validate trims the nickname in place.
func (c *UpdateProfileCommand) Validate() error {
	if c.Nickname == nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "nothing to update")
	}
	nickname := strings.TrimSpace(*c.Nickname)
	c.Nickname = &nickname
	if n := utf8.RuneCountInString(nickname); n < MinNicknameLength || n > MaxNicknameLength {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "nickname must be 2 to 8 characters")
	}
	if !nicknamePattern.MatchString(nickname) {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "nickname may only use Hangul, letters, digits, '.', '_' and '-'")
	}
	return nil
}
