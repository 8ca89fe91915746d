package registration

// RegisterRequest is the body of POST /api/users/register.
// @Description Request body for registering a new account
type RegisterRequest struct {
	// example: "john@example.com"
	Email string `json:"email" validate:"required"`
	// example: "john"
	Username string `json:"username" validate:"required"`
}
