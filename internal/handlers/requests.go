package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// SignInRequest is the query of GET /auth/signin.
type SignInRequest struct {
	Redirect string `query:"redirect"`
}

// CallbackRequest is the authorization response Azure AD sends back to the
// callback path (response_mode=query).
type CallbackRequest struct {
	Code             string `query:"code" validate:"required_without=Error"`
	State            string `query:"state"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}
