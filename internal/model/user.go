package model

// User represents an application user record as stored in the `user`
// table. The password hash is never serialized to JSON; handlers expose
// separate response types when a trimmed view is needed.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – given name.
//	LastName     – family name.
//	Email        – contact address used for verification and reset mail.
//	IsVerified   – whether the email address has been confirmed.
type User struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	IsVerified   bool   `json:"is_verified"`
}
