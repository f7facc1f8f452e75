package auth

// User is the read-only projection of the signed-in account
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Claims are the verified facts of an ID token presented to the server
type Claims struct {
	UID   string
	Email string
}
