package models

// ProfileView is a profile merged with its ordered sections and links.
type ProfileView struct {
	Profile   Profile    `json:"profile"`
	Subtitles []Subtitle `json:"subtitles"`
	Links     []Link     `json:"links"`
}
