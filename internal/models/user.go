package models

import "time"

// DiscordUser mirrors the profile returned by the Discord /users/@me endpoint.
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// User is the locally stored copy of a Discord profile plus the Admin flag,
// which is the only field this system computes itself. Keyed by the
// provider-assigned user id. Upserted on every successful login.
type User struct {
	ID            string    `json:"user_id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	GlobalName    string    `json:"global_name,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Admin         bool      `json:"admin"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at,omitempty"`
}

// DisplayName returns the global display name when set, falling back to the
// legacy username#discriminator form.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

// ApplyProfile copies the provider-owned fields from a fresh Discord profile
// onto the stored user, leaving Admin and CreatedAt untouched.
func (u *User) ApplyProfile(p *DiscordUser) {
	u.Username = p.Username
	u.Discriminator = p.Discriminator
	u.GlobalName = p.GlobalName
	u.Avatar = p.Avatar
}
