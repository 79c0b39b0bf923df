package models

// GuildMember is the membership record returned by the Discord guild member
// endpoint. Discord omits the roles key entirely for some responses (e.g.
// "Unknown Member" bodies); that decodes to a nil Roles slice, which the
// authorization resolver treats as "not a member" rather than an error.
type GuildMember struct {
	Nick  string   `json:"nick,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the membership record carries the given role id.
// A nil or empty roles list never matches.
func (m *GuildMember) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
