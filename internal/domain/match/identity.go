package match

import (
	"encoding/hex"
	"hash/fnv"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	competitionKeySeparator = ":"
	contentIDPrefix         = "snap-"
	FallbackSport           = "Otros"
	FallbackCompetition     = "Otros"
)

// CompetitionIDFor derives the stable competition id from category and title.
// It returns "" when both are blank.
func CompetitionIDFor(category, title string) string {
	category = strings.TrimSpace(category)
	title = strings.TrimSpace(title)
	if category == "" && title == "" {
		return ""
	}
	return category + competitionKeySeparator + title
}

// ResolveCompetitionID prefers the supplied id and falls back to the derived one.
func ResolveCompetitionID(item Competition) string {
	if id := strings.TrimSpace(item.ID); id != "" {
		return id
	}
	return CompetitionIDFor(item.Category, item.Title)
}

// SplitCompetitionKey splits a derived "category:title" key at the first
// separator.
func SplitCompetitionKey(key string) (category, title string, ok bool) {
	before, after, found := strings.Cut(key, competitionKeySeparator)
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// ExplicitID returns the first usable identity carried by the record itself:
// overlay id, then external match id, then an already assigned id.
func ExplicitID(item Match) string {
	return FirstNonBlank(item.OverlayID, item.ExternalID, item.ID)
}

// ContentID derives a deterministic id from a record's content for records
// that carry no identity of their own. It is empty when the record has no
// content to hash.
func ContentID(item Match) string {
	parts := []string{item.SourceURL, item.CompetitionID, item.HomeTeam, item.AwayTeam}
	if FirstNonBlank(parts...) == "" {
		return ""
	}

	h := fnv.New64a()
	for _, part := range parts {
		_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(part))))
		_, _ = h.Write([]byte{0})
	}
	return contentIDPrefix + hex.EncodeToString(h.Sum(nil))
}

// SportFromHref derives a display sport name from the first path segment of a
// competition link, e.g. "/futbol-sala/liga/" -> "Futbol Sala".
func SportFromHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	path := href
	if parsed, err := url.Parse(href); err == nil {
		path = parsed.Path
	}

	for _, segment := range strings.Split(path, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		words := strings.Join(strings.Fields(strings.ReplaceAll(segment, "-", " ")), " ")
		if words == "" {
			return ""
		}
		return cases.Title(language.Und).String(words)
	}
	return ""
}

// ResolveSport picks the explicit sport, then the href-derived one, then the
// fallback label.
func ResolveSport(item Competition) string {
	if sport := strings.TrimSpace(item.Sport); sport != "" {
		return sport
	}
	if sport := SportFromHref(item.Href); sport != "" {
		return sport
	}
	return FallbackSport
}

func FirstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
