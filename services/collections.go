package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"linkbio-service/models"
	"linkbio-service/realtime"
	"linkbio-service/utils"

	"github.com/google/uuid"
)

// DeleteResult reports a delete that succeeded. Warning is set when the
// follow-up resequencing of the remaining items failed.
type DeleteResult struct {
	Warning string `json:"warning,omitempty"`
}

type CollectionService struct {
	repo      CollectionRepository
	publisher Publisher
	now       func() time.Time
	newID     func() string
}

func NewCollectionService(repo CollectionRepository, publisher Publisher) *CollectionService {
	return &CollectionService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Resequence renumbers items to 0..n-1 in their current order and returns only
// the items whose index changes. Ties keep their input order.
func Resequence(items []models.OrderChange) []models.OrderChange {
	sorted := append([]models.OrderChange(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	var changes []models.OrderChange
	for i, item := range sorted {
		if item.OrderIndex != i {
			changes = append(changes, models.OrderChange{ID: item.ID, OrderIndex: i})
		}
	}
	return changes
}

// moveTo places id at position target among ordered (clamped to the ends)
// and returns the changes that make the whole list contiguous again.
func moveTo(ordered []models.OrderChange, id string, target int) (int, []models.OrderChange) {
	rest := make([]models.OrderChange, 0, len(ordered))
	for _, item := range ordered {
		if item.ID != id {
			rest = append(rest, item)
		}
	}
	if target < 0 {
		target = 0
	}
	if target > len(rest) {
		target = len(rest)
	}

	var changes []models.OrderChange
	for i, item := range rest {
		index := i
		if i >= target {
			index = i + 1
		}
		if item.OrderIndex != index {
			changes = append(changes, models.OrderChange{ID: item.ID, OrderIndex: index})
		}
	}
	return target, changes
}

func linkOrder(links []models.Link) []models.OrderChange {
	items := make([]models.OrderChange, len(links))
	for i, link := range links {
		items[i] = models.OrderChange{ID: link.ID, OrderIndex: link.OrderIndex}
	}
	return items
}

func subtitleOrder(subtitles []models.Subtitle) []models.OrderChange {
	items := make([]models.OrderChange, len(subtitles))
	for i, subtitle := range subtitles {
		items[i] = models.OrderChange{ID: subtitle.ID, OrderIndex: subtitle.OrderIndex}
	}
	return items
}

// AddLink appends a link to the end of a section.
func (s *CollectionService) AddLink(ctx context.Context, profileID string, input models.LinkInput) (models.Link, error) {
	if input.SubtitleID == nil || strings.TrimSpace(*input.SubtitleID) == "" {
		return models.Link{}, models.NewValidationError("subtitleId", "section required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Link{}, models.NewValidationError("title", "title required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return models.Link{}, models.NewValidationError("url", "url required")
	}

	subtitleID := strings.TrimSpace(*input.SubtitleID)
	if _, err := s.repo.GetSubtitle(ctx, profileID, subtitleID); err != nil {
		return models.Link{}, models.Backend("load subtitle", err)
	}
	count, err := s.repo.CountLinks(ctx, profileID, subtitleID)
	if err != nil {
		return models.Link{}, models.Backend("count links", err)
	}

	icon := models.ParseIconKey(input.Icon)
	now := s.now().UTC()
	link := models.Link{
		ID:         s.newID(),
		ProfileID:  profileID,
		SubtitleID: &subtitleID,
		Title:      title,
		Username:   strings.TrimSpace(input.Username),
		Icon:       icon,
		URL:        utils.NormalizeLinkURL(input.URL, icon == models.IconEmail),
		OrderIndex: count,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertLink(ctx, link); err != nil {
		return models.Link{}, models.Backend("insert link", err)
	}
	publish(s.publisher, realtime.TableLinks, realtime.OpInsert, profileID)
	return link, nil
}

// UpdateLink edits a link owned by profileID. Moving it to another section
// appends it there unless an order index is given; an order index moves it
// within its section and shifts its neighbours.
func (s *CollectionService) UpdateLink(ctx context.Context, profileID, linkID string, update models.LinkUpdate) (models.Link, error) {
	link, err := s.repo.GetLink(ctx, profileID, linkID)
	if err != nil {
		return models.Link{}, models.Backend("load link", err)
	}
	previousSubtitle := link.SubtitleID

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Link{}, models.NewValidationError("title", "title required")
		}
		link.Title = title
	}
	if update.Username != nil {
		link.Username = strings.TrimSpace(*update.Username)
	}
	if update.Icon != nil {
		link.Icon = models.ParseIconKey(*update.Icon)
	}
	if update.URL != nil {
		if strings.TrimSpace(*update.URL) == "" {
			return models.Link{}, models.NewValidationError("url", "url required")
		}
		link.URL = *update.URL
	}
	if update.URL != nil || update.Icon != nil {
		link.URL = utils.NormalizeLinkURL(link.URL, link.Icon == models.IconEmail)
	}

	moved := false
	if update.SubtitleID != nil {
		subtitleID := strings.TrimSpace(*update.SubtitleID)
		if subtitleID == "" {
			return models.Link{}, models.NewValidationError("subtitleId", "section required")
		}
		if previousSubtitle == nil || *previousSubtitle != subtitleID {
			if _, err := s.repo.GetSubtitle(ctx, profileID, subtitleID); err != nil {
				return models.Link{}, models.Backend("load subtitle", err)
			}
			count, err := s.repo.CountLinks(ctx, profileID, subtitleID)
			if err != nil {
				return models.Link{}, models.Backend("count links", err)
			}
			link.SubtitleID = &subtitleID
			link.OrderIndex = count
			moved = true
		}
	}

	var shifts []models.OrderChange
	if update.OrderIndex != nil && link.SubtitleID != nil {
		siblings, err := s.repo.ListLinksInSubtitle(ctx, profileID, *link.SubtitleID)
		if err != nil {
			return models.Link{}, models.Backend("load links", err)
		}
		link.OrderIndex, shifts = moveTo(linkOrder(siblings), link.ID, *update.OrderIndex)
	}

	link.UpdatedAt = s.now().UTC()
	updated, err := s.repo.UpdateLink(ctx, link, shifts)
	if err != nil {
		return models.Link{}, models.Backend("update link", err)
	}
	if moved && previousSubtitle != nil {
		s.resequenceLinks(ctx, profileID, *previousSubtitle)
	}

	publish(s.publisher, realtime.TableLinks, realtime.OpUpdate, profileID)
	return updated, nil
}

// DeleteLink removes a link and closes the gap it leaves in its section.
func (s *CollectionService) DeleteLink(ctx context.Context, profileID, linkID string) (DeleteResult, error) {
	link, err := s.repo.GetLink(ctx, profileID, linkID)
	if err != nil {
		return DeleteResult{}, models.Backend("load link", err)
	}
	if err := s.repo.DeleteLink(ctx, profileID, linkID); err != nil {
		return DeleteResult{}, models.Backend("delete link", err)
	}

	var result DeleteResult
	if link.SubtitleID != nil {
		result.Warning = s.resequenceLinks(ctx, profileID, *link.SubtitleID)
	}
	publish(s.publisher, realtime.TableLinks, realtime.OpDelete, profileID)
	return result, nil
}

// resequenceLinks is best-effort: a failure is logged and returned as a
// warning, never as an error.
func (s *CollectionService) resequenceLinks(ctx context.Context, profileID, subtitleID string) string {
	remaining, err := s.repo.ListLinksInSubtitle(ctx, profileID, subtitleID)
	if err == nil {
		err = s.repo.ReorderLinks(ctx, profileID, Resequence(linkOrder(remaining)))
	}
	if err != nil {
		log.Printf("warning: link reorder failed profile_id=%s subtitle_id=%s err=%v", profileID, subtitleID, err)
		return "link deleted but the remaining links could not be reordered"
	}
	return ""
}

func (s *CollectionService) AddSubtitle(ctx context.Context, profileID string, input models.SubtitleInput) (models.Subtitle, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return models.Subtitle{}, models.NewValidationError("text", "section title required")
	}
	count, err := s.repo.CountSubtitles(ctx, profileID)
	if err != nil {
		return models.Subtitle{}, models.Backend("count subtitles", err)
	}

	now := s.now().UTC()
	subtitle := models.Subtitle{
		ID:         s.newID(),
		ProfileID:  profileID,
		Text:       text,
		OrderIndex: count,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertSubtitle(ctx, subtitle); err != nil {
		return models.Subtitle{}, models.Backend("insert subtitle", err)
	}
	publish(s.publisher, realtime.TableSubtitles, realtime.OpInsert, profileID)
	return subtitle, nil
}

func (s *CollectionService) UpdateSubtitle(ctx context.Context, profileID, subtitleID string, update models.SubtitleUpdate) (models.Subtitle, error) {
	if update.Text == nil && update.OrderIndex == nil {
		return models.Subtitle{}, models.NewValidationError("", "no fields to update")
	}
	subtitle, err := s.repo.GetSubtitle(ctx, profileID, subtitleID)
	if err != nil {
		return models.Subtitle{}, models.Backend("load subtitle", err)
	}
	if update.Text != nil {
		text := strings.TrimSpace(*update.Text)
		if text == "" {
			return models.Subtitle{}, models.NewValidationError("text", "section title required")
		}
		subtitle.Text = text
	}

	var shifts []models.OrderChange
	if update.OrderIndex != nil {
		siblings, err := s.repo.ListSubtitles(ctx, profileID)
		if err != nil {
			return models.Subtitle{}, models.Backend("load subtitles", err)
		}
		subtitle.OrderIndex, shifts = moveTo(subtitleOrder(siblings), subtitle.ID, *update.OrderIndex)
	}

	subtitle.UpdatedAt = s.now().UTC()
	updated, err := s.repo.UpdateSubtitle(ctx, subtitle, shifts)
	if err != nil {
		return models.Subtitle{}, models.Backend("update subtitle", err)
	}
	publish(s.publisher, realtime.TableSubtitles, realtime.OpUpdate, profileID)
	return updated, nil
}

// DeleteSubtitle removes a section. Its links stay on the profile without a
// section.
func (s *CollectionService) DeleteSubtitle(ctx context.Context, profileID, subtitleID string) (DeleteResult, error) {
	if err := s.repo.DeleteSubtitle(ctx, profileID, subtitleID); err != nil {
		return DeleteResult{}, models.Backend("delete subtitle", err)
	}

	var result DeleteResult
	remaining, err := s.repo.ListSubtitles(ctx, profileID)
	if err == nil {
		err = s.repo.ReorderSubtitles(ctx, profileID, Resequence(subtitleOrder(remaining)))
	}
	if err != nil {
		log.Printf("warning: subtitle reorder failed profile_id=%s err=%v", profileID, err)
		result.Warning = "section deleted but the remaining sections could not be reordered"
	}

	publish(s.publisher, realtime.TableSubtitles, realtime.OpDelete, profileID)
	publish(s.publisher, realtime.TableLinks, realtime.OpUpdate, profileID)
	return result, nil
}
