package auth

// Operator is the single account allowed to manage the catalog.
type Operator struct {
	Username string
}

// Credentials configure the operator account. PasswordHash, when set, is a
// bcrypt hash and takes precedence over Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}
