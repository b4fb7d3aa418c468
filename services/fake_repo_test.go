package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"linkbio-service/models"
	"linkbio-service/realtime"
)

var errBackend = errors.New("connection refused")

// memRepo is an in-memory stand-in for repository.Postgres.
type memRepo struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	subtitles map[string]models.Subtitle
	links     map[string]models.Link
	views     []models.PageView
	clicks    []models.LinkClick

	createCalls int
	updateCalls int

	failGetProfile    error
	failUpdate        error
	failUsernameCheck error
	failReorderLinks  error
	failReorderSubs   error
	failListInSub     error
	failInsertLink    error

	durations     map[time.Time][]int
	clickCounts   map[time.Time]int
	devices       []models.DeviceCount
	geo           []models.CountryCount
	linkCounts    []models.LinkClickCount
	failDurations error
	failDevices   error
	failGeo       error
	failLinkStats error
	statsLimit    int
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles:    map[string]models.Profile{},
		subtitles:   map[string]models.Subtitle{},
		links:       map[string]models.Link{},
		durations:   map[time.Time][]int{},
		clickCounts: map[time.Time]int{},
	}
}

func (m *memRepo) GetProfileByID(_ context.Context, id string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGetProfile != nil {
		return models.Profile{}, m.failGetProfile
	}
	p, ok := m.profiles[id]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) GetProfileByUsername(_ context.Context, username string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username != nil && *p.Username == username {
			return p, nil
		}
	}
	return models.Profile{}, models.ErrNotFound
}

func (m *memRepo) CreateProfile(_ context.Context, profile models.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.profiles[profile.ID]; ok {
		return false, nil
	}
	m.profiles[profile.ID] = profile
	return true, nil
}

func (m *memRepo) UpdateProfile(_ context.Context, id string, u models.ProfileUpdate, updatedAt time.Time) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failUpdate != nil {
		return models.Profile{}, m.failUpdate
	}
	p, ok := m.profiles[id]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, u.Name)
	set(&p.Title, u.Title)
	set(&p.Bio, u.Bio)
	set(&p.Location, u.Location)
	set(&p.AvatarURL, u.AvatarURL)
	set(&p.BackgroundURL, u.BackgroundURL)
	set(&p.ProfileBgColor, u.ProfileBgColor)
	set(&p.ProfileTextColor, u.ProfileTextColor)
	set(&p.ButtonBgColor, u.ButtonBgColor)
	set(&p.ButtonTextColor, u.ButtonTextColor)
	if u.Available != nil {
		p.Available = *u.Available
	}
	if u.Username != nil {
		if *u.Username == "" {
			p.Username = nil
		} else {
			username := *u.Username
			p.Username = &username
		}
	}
	p.UpdatedAt = updatedAt
	m.profiles[id] = p
	return p, nil
}

func (m *memRepo) UsernameTaken(_ context.Context, username, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUsernameCheck != nil {
		return false, m.failUsernameCheck
	}
	for id, p := range m.profiles {
		if id != excludeID && p.Username != nil && *p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListSubtitles(_ context.Context, profileID string) ([]models.Subtitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Subtitle{}
	for _, s := range m.subtitles {
		if s.ProfileID == profileID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memRepo) GetSubtitle(_ context.Context, profileID, id string) (models.Subtitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subtitles[id]
	if !ok || s.ProfileID != profileID {
		return models.Subtitle{}, models.ErrNotFound
	}
	return s, nil
}

func (m *memRepo) CountSubtitles(ctx context.Context, profileID string) (int, error) {
	subs, _ := m.ListSubtitles(ctx, profileID)
	return len(subs), nil
}

func (m *memRepo) InsertSubtitle(_ context.Context, s models.Subtitle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subtitles[s.ID] = s
	return nil
}

// UpdateSubtitle is all-or-nothing like the transactional Postgres version.
func (m *memRepo) UpdateSubtitle(_ context.Context, s models.Subtitle, shifts []models.OrderChange) (models.Subtitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.subtitles[s.ID]
	if !ok || current.ProfileID != s.ProfileID {
		return models.Subtitle{}, models.ErrNotFound
	}
	if len(shifts) > 0 && m.failReorderSubs != nil {
		return models.Subtitle{}, m.failReorderSubs
	}
	m.subtitles[s.ID] = s
	for _, c := range shifts {
		sibling := m.subtitles[c.ID]
		sibling.OrderIndex = c.OrderIndex
		m.subtitles[c.ID] = sibling
	}
	return s, nil
}

func (m *memRepo) DeleteSubtitle(_ context.Context, profileID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subtitles[id]
	if !ok || s.ProfileID != profileID {
		return models.ErrNotFound
	}
	delete(m.subtitles, id)
	for linkID, l := range m.links {
		if l.SubtitleID != nil && *l.SubtitleID == id {
			l.SubtitleID = nil
			m.links[linkID] = l
		}
	}
	return nil
}

func (m *memRepo) ReorderSubtitles(_ context.Context, profileID string, changes []models.OrderChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReorderSubs != nil {
		return m.failReorderSubs
	}
	for _, c := range changes {
		s := m.subtitles[c.ID]
		s.OrderIndex = c.OrderIndex
		m.subtitles[c.ID] = s
	}
	return nil
}

func (m *memRepo) ListLinks(_ context.Context, profileID string) ([]models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Link{}
	for _, l := range m.links {
		if l.ProfileID == profileID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memRepo) ListLinksInSubtitle(_ context.Context, profileID, subtitleID string) ([]models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListInSub != nil {
		return nil, m.failListInSub
	}
	out := []models.Link{}
	for _, l := range m.links {
		if l.ProfileID == profileID && l.SubtitleID != nil && *l.SubtitleID == subtitleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memRepo) GetLink(_ context.Context, profileID, id string) (models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.ProfileID != profileID {
		return models.Link{}, models.ErrNotFound
	}
	return l, nil
}

func (m *memRepo) CountLinks(_ context.Context, profileID, subtitleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.links {
		if l.ProfileID == profileID && l.SubtitleID != nil && *l.SubtitleID == subtitleID {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) InsertLink(_ context.Context, l models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertLink != nil {
		return m.failInsertLink
	}
	m.links[l.ID] = l
	return nil
}

// UpdateLink is all-or-nothing like the transactional Postgres version.
func (m *memRepo) UpdateLink(_ context.Context, l models.Link, shifts []models.OrderChange) (models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.links[l.ID]
	if !ok || current.ProfileID != l.ProfileID {
		return models.Link{}, models.ErrNotFound
	}
	if len(shifts) > 0 && m.failReorderLinks != nil {
		return models.Link{}, m.failReorderLinks
	}
	m.links[l.ID] = l
	for _, c := range shifts {
		sibling := m.links[c.ID]
		sibling.OrderIndex = c.OrderIndex
		m.links[c.ID] = sibling
	}
	return l, nil
}

func (m *memRepo) DeleteLink(_ context.Context, profileID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.ProfileID != profileID {
		return models.ErrNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *memRepo) ReorderLinks(_ context.Context, profileID string, changes []models.OrderChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReorderLinks != nil {
		return m.failReorderLinks
	}
	for _, c := range changes {
		l := m.links[c.ID]
		l.OrderIndex = c.OrderIndex
		m.links[c.ID] = l
	}
	return nil
}

func (m *memRepo) ListSessionDurations(_ context.Context, _ string, from, _ time.Time) ([]int, error) {
	if m.failDurations != nil {
		return nil, m.failDurations
	}
	return m.durations[from], nil
}

func (m *memRepo) CountLinkClicks(_ context.Context, _ string, from, _ time.Time) (int, error) {
	return m.clickCounts[from], nil
}

func (m *memRepo) DeviceStats(context.Context, string, time.Time) ([]models.DeviceCount, error) {
	return m.devices, m.failDevices
}

func (m *memRepo) GeoStats(context.Context, string, time.Time) ([]models.CountryCount, error) {
	return m.geo, m.failGeo
}

func (m *memRepo) LinkClickCounts(_ context.Context, _ string, _, _ time.Time, limit int) ([]models.LinkClickCount, error) {
	m.statsLimit = limit
	return m.linkCounts, m.failLinkStats
}

func (m *memRepo) InsertPageView(_ context.Context, v models.PageView) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, v)
	return int64(len(m.views)), nil
}

func (m *memRepo) InsertLinkClick(_ context.Context, c models.LinkClick) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, c)
	return int64(len(m.clicks)), nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []realtime.Notification
}

func (p *recordingPublisher) Publish(n realtime.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) tables() []realtime.Table {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Table, len(p.sent))
	for i, n := range p.sent {
		out[i] = n.Table
	}
	return out
}
