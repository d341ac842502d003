package domain

// User is the profile record upserted on first login. ExternalID is the
// identity provider's subject and never changes.
type User struct {
	ExternalID  string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Validate checks the fields required to register a user.
func (u User) Validate() error {
	if u.ExternalID == "" || u.Email == "" || u.DisplayName == "" {
		return ErrMissingFields
	}
	return nil
}
