// Package users holds the Account model and the storage collaborator used by
// the registration workflow: an interface plus a Postgres and an in-memory
// implementation. It plays the role of a TypeORM entity plus its repository
// in a Nest.js application.
package users

// Status is the lifecycle state of an account.
type Status string

// StatusPending is the state of every freshly registered account.
// Verification would later move it forward; that flow lives elsewhere.
const StatusPending Status = "PENDING"

// Account is a registered user.
// @Description A registered account. Email and username are stored exactly as submitted.
type Account struct {
	// Storage-assigned identifier. Zero until the account is saved.
	// example: 1
	ID int64 `json:"id"`
	// example: "john@example.com"
	Email string `json:"email"`
	// example: "Sophie Müller"
	Username string `json:"username"`
	// example: "PENDING"
	Status Status `json:"status"`
}
