package models

import "time"

type Profile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Bio              string    `json:"bio"`
	Location         string    `json:"location"`
	Available        bool      `json:"available"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	BackgroundURL    string    `json:"backgroundUrl,omitempty"`
	ProfileBgColor   string    `json:"profileBgColor"`
	ProfileTextColor string    `json:"profileTextColor"`
	ButtonBgColor    string    `json:"buttonBgColor"`
	ButtonTextColor  string    `json:"buttonTextColor"`
	Username         *string   `json:"username"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ProfileUpdate carries a partial profile edit. Nil fields are left untouched.
type ProfileUpdate struct {
	Name             *string `json:"name,omitempty"`
	Title            *string `json:"title,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	Location         *string `json:"location,omitempty"`
	Available        *bool   `json:"available,omitempty"`
	AvatarURL        *string `json:"avatarUrl,omitempty"`
	BackgroundURL    *string `json:"backgroundUrl,omitempty"`
	ProfileBgColor   *string `json:"profileBgColor,omitempty"`
	ProfileTextColor *string `json:"profileTextColor,omitempty"`
	ButtonBgColor    *string `json:"buttonBgColor,omitempty"`
	ButtonTextColor  *string `json:"buttonTextColor,omitempty"`
	Username         *string `json:"username,omitempty"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Title == nil && u.Bio == nil && u.Location == nil &&
		u.Available == nil && u.AvatarURL == nil && u.BackgroundURL == nil &&
		u.ProfileBgColor == nil && u.ProfileTextColor == nil &&
		u.ButtonBgColor == nil && u.ButtonTextColor == nil && u.Username == nil
}
