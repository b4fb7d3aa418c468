// Package render turns stored profile rows into the view models consumed by
// the dashboard editor, the public profile page and the preview pane.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"linkbio-service/models"
	"linkbio-service/theme"
)

type Mode string

const (
	ModeEditor  Mode = "editor"
	ModePublic  Mode = "public"
	ModePreview Mode = "preview"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeEditor:
		return ModeEditor, nil
	case ModePublic:
		return ModePublic, nil
	case ModePreview:
		return ModePreview, nil
	default:
		return "", models.NewValidationError("mode", fmt.Sprintf("unknown view mode %q", value))
	}
}

type Card struct {
	ID            string     `json:"id"`
	Username      *string    `json:"username"`
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Bio           string     `json:"bio"`
	Location      string     `json:"location"`
	Available     bool       `json:"available"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	BackgroundURL string     `json:"backgroundUrl,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Colors are the stored theme tokens, exposed so the editor can preselect them.
type Colors struct {
	ProfileBg   string `json:"profileBgColor"`
	ProfileText string `json:"profileTextColor"`
	ButtonBg    string `json:"buttonBgColor"`
	ButtonText  string `json:"buttonTextColor"`
}

type Header struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	OrderIndex int    `json:"orderIndex"`
}

type Item struct {
	ID         string         `json:"id"`
	SubtitleID *string        `json:"subtitleId"`
	Title      string         `json:"title"`
	Username   string         `json:"username,omitempty"`
	Icon       models.IconKey `json:"icon"`
	IconLabel  string         `json:"iconLabel"`
	URL        string         `json:"url"`
	OrderIndex int            `json:"orderIndex"`
}

// Section groups links under a header. The leading section of links without
// a (known) header has a nil Header.
type Section struct {
	Header *Header `json:"subtitle"`
	Links  []Item  `json:"links"`
}

type View struct {
	Mode     Mode                `json:"mode"`
	Preview  bool                `json:"preview,omitempty"`
	Profile  Card                `json:"profile"`
	Theme    theme.Theme         `json:"theme"`
	Colors   *Colors             `json:"colors,omitempty"`
	Palette  map[string][]string `json:"palette,omitempty"`
	Sections []Section           `json:"sections"`
}

// BuildProfileView merges a profile with its sections and links. Sections and
// links are ordered by order index, ties broken by creation time then id.
func BuildProfileView(profile models.Profile, subtitles []models.Subtitle, links []models.Link, mode Mode) View {
	view := View{
		Mode:     mode,
		Profile:  card(profile, mode),
		Theme:    theme.Resolve(profile),
		Sections: Sections(subtitles, links, mode != ModePublic),
	}

	switch mode {
	case ModeEditor:
		view.Colors = colors(profile)
		view.Palette = palette()
	case ModePreview:
		view.Preview = true
		view.Colors = colors(profile)
	}
	return view
}

// FromProfileView is BuildProfileView over an aggregated profile.
func FromProfileView(pv models.ProfileView, mode Mode) View {
	return BuildProfileView(pv.Profile, pv.Subtitles, pv.Links, mode)
}

// Sections groups links by subtitle. Empty subtitle sections are kept only
// when keepEmpty is set.
func Sections(subtitles []models.Subtitle, links []models.Link, keepEmpty bool) []Section {
	subs := append([]models.Subtitle(nil), subtitles...)
	sort.SliceStable(subs, func(i, j int) bool {
		return before(subs[i].OrderIndex, subs[j].OrderIndex, subs[i].CreatedAt, subs[j].CreatedAt, subs[i].ID, subs[j].ID)
	})
	ordered := append([]models.Link(nil), links...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return before(ordered[i].OrderIndex, ordered[j].OrderIndex, ordered[i].CreatedAt, ordered[j].CreatedAt, ordered[i].ID, ordered[j].ID)
	})

	known := make(map[string]bool, len(subs))
	for _, s := range subs {
		known[s.ID] = true
	}

	grouped := make(map[string][]Item, len(subs))
	var orphans []Item
	for _, l := range ordered {
		if l.SubtitleID == nil || !known[*l.SubtitleID] {
			orphans = append(orphans, item(l))
			continue
		}
		grouped[*l.SubtitleID] = append(grouped[*l.SubtitleID], item(l))
	}

	sections := make([]Section, 0, len(subs)+1)
	if len(orphans) > 0 {
		sections = append(sections, Section{Links: orphans})
	}
	for _, s := range subs {
		items := grouped[s.ID]
		if len(items) == 0 && !keepEmpty {
			continue
		}
		if items == nil {
			items = []Item{}
		}
		sections = append(sections, Section{
			Header: &Header{ID: s.ID, Text: s.Text, OrderIndex: s.OrderIndex},
			Links:  items,
		})
	}
	return sections
}

func before(a, b int, aCreated, bCreated time.Time, aID, bID string) bool {
	if a != b {
		return a < b
	}
	if !aCreated.Equal(bCreated) {
		return aCreated.Before(bCreated)
	}
	return aID < bID
}

func card(p models.Profile, mode Mode) Card {
	c := Card{
		ID:            p.ID,
		Username:      p.Username,
		Name:          p.Name,
		Title:         p.Title,
		Bio:           p.Bio,
		Location:      p.Location,
		Available:     p.Available,
		AvatarURL:     p.AvatarURL,
		BackgroundURL: p.BackgroundURL,
	}
	if mode != ModePublic && !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		c.UpdatedAt = &updated
	}
	return c
}

func item(l models.Link) Item {
	return Item{
		ID:         l.ID,
		SubtitleID: l.SubtitleID,
		Title:      l.Title,
		Username:   l.Username,
		Icon:       l.Icon,
		IconLabel:  l.Icon.Label(),
		URL:        l.URL,
		OrderIndex: l.OrderIndex,
	}
}

func colors(p models.Profile) *Colors {
	return &Colors{
		ProfileBg:   tokenOrDefault(p.ProfileBgColor, theme.Background),
		ProfileText: tokenOrDefault(p.ProfileTextColor, theme.Text),
		ButtonBg:    tokenOrDefault(p.ButtonBgColor, theme.ButtonBackground),
		ButtonText:  tokenOrDefault(p.ButtonTextColor, theme.ButtonText),
	}
}

func tokenOrDefault(value string, category theme.Category) string {
	if strings.TrimSpace(value) == "" {
		return theme.Default(category)
	}
	return value
}

func palette() map[string][]string {
	out := make(map[string][]string, 4)
	for _, category := range []theme.Category{theme.Background, theme.Text, theme.ButtonBackground, theme.ButtonText} {
		out[category.String()] = theme.Tokens(category)
	}
	return out
}
