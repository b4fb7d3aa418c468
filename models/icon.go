package models

import "strings"

// IconKey is the closed set of icons a link can render with.
type IconKey string

const (
	IconLink      IconKey = "link"
	IconWebsite   IconKey = "website"
	IconEmail     IconKey = "email"
	IconPhone     IconKey = "phone"
	IconInstagram IconKey = "instagram"
	IconTwitter   IconKey = "twitter"
	IconFacebook  IconKey = "facebook"
	IconLinkedIn  IconKey = "linkedin"
	IconGitHub    IconKey = "github"
	IconYouTube   IconKey = "youtube"
	IconTikTok    IconKey = "tiktok"
)

// ParseIconKey maps a stored or submitted key onto the enumeration. Unknown
// keys fall back to IconLink.
func ParseIconKey(value string) IconKey {
	switch IconKey(strings.ToLower(strings.TrimSpace(value))) {
	case IconWebsite:
		return IconWebsite
	case IconEmail:
		return IconEmail
	case IconPhone:
		return IconPhone
	case IconInstagram:
		return IconInstagram
	case IconTwitter:
		return IconTwitter
	case IconFacebook:
		return IconFacebook
	case IconLinkedIn:
		return IconLinkedIn
	case IconGitHub:
		return IconGitHub
	case IconYouTube:
		return IconYouTube
	case IconTikTok:
		return IconTikTok
	default:
		return IconLink
	}
}

// Label is the accessible name rendered next to the icon.
func (k IconKey) Label() string {
	switch k {
	case IconWebsite:
		return "Website"
	case IconEmail:
		return "Email"
	case IconPhone:
		return "Phone"
	case IconInstagram:
		return "Instagram"
	case IconTwitter:
		return "Twitter"
	case IconFacebook:
		return "Facebook"
	case IconLinkedIn:
		return "LinkedIn"
	case IconGitHub:
		return "GitHub"
	case IconYouTube:
		return "YouTube"
	case IconTikTok:
		return "TikTok"
	default:
		return "Link"
	}
}
