// Package identity loads name pools and generates throwaway sign-up identities.
package identity

// Identity is the generated data for one sign-up attempt.
type Identity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"-"`
}

// FullName joins the first and last name.
func (i Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}
