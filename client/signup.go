package client

import "github.com/pkg/errors"

const minPasswordLength = 8

// SignupForm is the registration input validated before any network call.
type SignupForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
}

func (f SignupForm) Validate() error {
	if f.Username == "" || f.Email == "" || f.FullName == "" {
		return errors.New("username, email and full name are required")
	}
	if len(f.Password) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if f.Password != f.ConfirmPassword {
		return errors.New("passwords do not match")
	}
	return nil
}
