package models

import "time"

type Subtitle struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	Text       string    `json:"text"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Link struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	SubtitleID *string   `json:"subtitleId"`
	Title      string    `json:"title"`
	Username   string    `json:"username,omitempty"`
	Icon       IconKey   `json:"icon"`
	URL        string    `json:"url"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type LinkInput struct {
	SubtitleID *string `json:"subtitleId"`
	Title      string  `json:"title"`
	Username   string  `json:"username"`
	Icon       string  `json:"icon"`
	URL        string  `json:"url"`
}

type LinkUpdate struct {
	SubtitleID *string `json:"subtitleId,omitempty"`
	Title      *string `json:"title,omitempty"`
	Username   *string `json:"username,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	URL        *string `json:"url,omitempty"`
	OrderIndex *int    `json:"orderIndex,omitempty"`
}

type SubtitleInput struct {
	Text string `json:"text"`
}

type SubtitleUpdate struct {
	Text       *string `json:"text,omitempty"`
	OrderIndex *int    `json:"orderIndex,omitempty"`
}
