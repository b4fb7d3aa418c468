// Package theme converts the compact color tokens stored on a profile into
// utility style classes and back.
package theme

import (
	"regexp"
	"sort"
	"strings"

	"linkbio-service/models"
)

type Category int

const (
	Background Category = iota
	Text
	ButtonBackground
	ButtonText
)

func (c Category) String() string {
	switch c {
	case Background:
		return "background"
	case Text:
		return "text"
	case ButtonBackground:
		return "buttonBackground"
	case ButtonText:
		return "buttonText"
	default:
		return "unknown"
	}
}

const (
	DefaultBackground       = "wht"
	DefaultText             = "gry900"
	DefaultButtonBackground = "gry100"
	DefaultButtonText       = "gry900"
)

// Style is what a token renders to. Exactly one of Class or Inline is set.
type Style struct {
	Class  string `json:"class,omitempty"`
	Inline string `json:"inline,omitempty"`
}

type Theme struct {
	Background       Style `json:"background"`
	Text             Style `json:"text"`
	ButtonBackground Style `json:"buttonBackground"`
	ButtonText       Style `json:"buttonText"`
}

type vocabulary struct {
	defaultToken string
	classes      map[string]string
	tokens       map[string]string
	inlineProp   string
}

var backgroundClasses = map[string]string{
	"wht":    "bg-white",
	"gry50":  "bg-gray-50",
	"gry100": "bg-gray-100",
	"blu50":  "bg-blue-50",
	"grn50":  "bg-green-50",
	"pnk50":  "bg-pink-50",
}

var textClasses = map[string]string{
	"gry900": "text-gray-900",
	"gry600": "text-gray-600",
	"blu600": "text-blue-600",
	"grn600": "text-green-600",
	"prp600": "text-purple-600",
}

var vocabularies = map[Category]vocabulary{
	Background:       newVocabulary(DefaultBackground, "background-color", backgroundClasses),
	Text:             newVocabulary(DefaultText, "color", textClasses),
	ButtonBackground: newVocabulary(DefaultButtonBackground, "background-color", backgroundClasses, fills(textClasses)),
	ButtonText:       newVocabulary(DefaultButtonText, "color", textClasses, map[string]string{"wht": "text-white"}),
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

func newVocabulary(defaultToken, inlineProp string, sets ...map[string]string) vocabulary {
	v := vocabulary{
		defaultToken: defaultToken,
		classes:      make(map[string]string),
		tokens:       make(map[string]string),
		inlineProp:   inlineProp,
	}
	for _, set := range sets {
		for token, class := range set {
			v.classes[token] = class
			v.tokens[class] = token
		}
	}
	return v
}

// fills turns text color classes into background fills of the same shade.
func fills(classes map[string]string) map[string]string {
	out := make(map[string]string, len(classes))
	for token, class := range classes {
		out[token] = "bg-" + strings.TrimPrefix(class, "text-")
	}
	return out
}

// Encode renders a stored token. Hex colors become inline styles; unknown or
// empty tokens render as the category default.
func Encode(token string, category Category) Style {
	vocab, ok := vocabularies[category]
	if !ok {
		return Style{}
	}
	token = strings.TrimSpace(token)
	if IsCustom(token) {
		return Style{Inline: vocab.inlineProp + ": " + strings.ToLower(token)}
	}
	if class, ok := vocab.classes[token]; ok {
		return Style{Class: class}
	}
	return Style{Class: vocab.classes[vocab.defaultToken]}
}

// Decode returns the token for a style class, or the category default when the
// class is not part of the vocabulary.
func Decode(class string, category Category) string {
	vocab, ok := vocabularies[category]
	if !ok {
		return ""
	}
	if token, ok := vocab.tokens[strings.TrimSpace(class)]; ok {
		return token
	}
	return vocab.defaultToken
}

// IsCustom reports whether a stored value is a literal color rather than a token.
func IsCustom(value string) bool {
	return hexColor.MatchString(value)
}

// Tokens lists the vocabulary of a category in sorted order.
func Tokens(category Category) []string {
	vocab, ok := vocabularies[category]
	if !ok {
		return nil
	}
	tokens := make([]string, 0, len(vocab.classes))
	for token := range vocab.classes {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Default returns the fallback token of a category.
func Default(category Category) string {
	return vocabularies[category].defaultToken
}

// Resolve renders all four color slots of a profile.
func Resolve(profile models.Profile) Theme {
	return Theme{
		Background:       Encode(profile.ProfileBgColor, Background),
		Text:             Encode(profile.ProfileTextColor, Text),
		ButtonBackground: Encode(profile.ButtonBgColor, ButtonBackground),
		ButtonText:       Encode(profile.ButtonTextColor, ButtonText),
	}
}
