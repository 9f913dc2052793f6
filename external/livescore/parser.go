package livescore

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchboard/internal/domain/match"
)

// ErrFragmentNotFound is returned when a document holds no match fragment at
// all. A document with fragments always yields one via the first-fragment
// fallback.
var ErrFragmentNotFound = crerr.New("match fragment not found")

// FragmentLayout tells the HTML parser where a match fragment and its fields
// live inside a document.
type FragmentLayout struct {
	FragmentSelector  string
	OverlayIDAttr     string
	InternalIDAttr    string
	ExternalIDAttr    string
	TimeSelector      string
	StageSelector     string
	HomeScoreSelector string
	AwayScoreSelector string
}

func DefaultFragmentLayout() FragmentLayout {
	return FragmentLayout{
		FragmentSelector:  "[data-match-id]",
		OverlayIDAttr:     "data-overlay-id",
		InternalIDAttr:    "data-internal-id",
		ExternalIDAttr:    "data-match-id",
		TimeSelector:      ".match-time",
		StageSelector:     ".match-stage",
		HomeScoreSelector: ".home-score",
		AwayScoreSelector: ".away-score",
	}
}

func (l FragmentLayout) normalize() FragmentLayout {
	def := DefaultFragmentLayout()
	l.FragmentSelector = match.FirstNonBlank(l.FragmentSelector, def.FragmentSelector)
	l.OverlayIDAttr = match.FirstNonBlank(l.OverlayIDAttr, def.OverlayIDAttr)
	l.InternalIDAttr = match.FirstNonBlank(l.InternalIDAttr, def.InternalIDAttr)
	l.ExternalIDAttr = match.FirstNonBlank(l.ExternalIDAttr, def.ExternalIDAttr)
	l.TimeSelector = match.FirstNonBlank(l.TimeSelector, def.TimeSelector)
	l.StageSelector = match.FirstNonBlank(l.StageSelector, def.StageSelector)
	l.HomeScoreSelector = match.FirstNonBlank(l.HomeScoreSelector, def.HomeScoreSelector)
	l.AwayScoreSelector = match.FirstNonBlank(l.AwayScoreSelector, def.AwayScoreSelector)
	return l
}

type fragmentIdentity struct {
	overlayID  string
	internalID int64
	externalID string
}

// locateFragment applies the identity cascade: overlay id, internal numeric
// id, external match id, then the first fragment.
func locateFragment(fragments []fragmentIdentity, target match.RefreshTarget) int {
	if len(fragments) == 0 {
		return -1
	}
	if overlayID := strings.TrimSpace(target.OverlayID); overlayID != "" {
		for i, fragment := range fragments {
			if fragment.overlayID == overlayID {
				return i
			}
		}
	}
	if target.InternalRefID > 0 {
		for i, fragment := range fragments {
			if fragment.internalID == target.InternalRefID {
				return i
			}
		}
	}
	if externalID := strings.TrimSpace(target.ExternalID); externalID != "" {
		for i, fragment := range fragments {
			if fragment.externalID == externalID {
				return i
			}
		}
	}
	return 0
}

// ParseDocument extracts the refreshable fields of target from raw. JSON
// documents are recognized by their first byte; everything else is HTML.
func ParseDocument(raw []byte, target match.RefreshTarget, layout FragmentLayout) (match.RefreshResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return match.RefreshResult{}, crerr.Wrap(ErrFragmentNotFound, "empty document")
	}

	var (
		result match.RefreshResult
		err    error
	)
	switch trimmed[0] {
	case '{', '[':
		result, err = parseJSONDocument(trimmed, target)
	default:
		result, err = parseHTMLDocument(trimmed, target, layout.normalize())
	}
	if err != nil {
		return match.RefreshResult{}, err
	}
	result.ID = target.ID
	return result, nil
}

// flexText accepts a JSON string, number or null.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var value string
		if err := sonic.Unmarshal(data, &value); err != nil {
			return err
		}
		*t = flexText(strings.TrimSpace(value))
	default:
		*t = flexText(string(data))
	}
	return nil
}

type jsonFragment struct {
	ID         flexText  `json:"id"`
	MatchID    flexText  `json:"matchId"`
	InternalID flexText  `json:"internalId"`
	Time       *flexText `json:"time"`
	Stage      *flexText `json:"stage"`
	HomeScore  *flexText `json:"homeScore"`
	AwayScore  *flexText `json:"awayScore"`
}

// result keeps absent and null fields out of Found.
func (f jsonFragment) result() match.RefreshResult {
	var out match.RefreshResult
	out.Time = f.Time.take(&out, match.RefreshTime)
	out.Stage = f.Stage.take(&out, match.RefreshStage)
	out.HomeScore = f.HomeScore.take(&out, match.RefreshHomeScore)
	out.AwayScore = f.AwayScore.take(&out, match.RefreshAwayScore)
	return out
}

func (t *flexText) take(out *match.RefreshResult, field match.RefreshField) string {
	if t == nil {
		return ""
	}
	out.Found |= field
	return string(*t)
}

type jsonDocument struct {
	Matches []json.RawMessage `json:"matches"`
}

func parseJSONDocument(raw []byte, target match.RefreshTarget) (match.RefreshResult, error) {
	var items []json.RawMessage
	if raw[0] == '[' {
		if err := sonic.Unmarshal(raw, &items); err != nil {
			return match.RefreshResult{}, crerr.Wrap(err, "decode json document")
		}
	} else {
		var doc jsonDocument
		if err := sonic.Unmarshal(raw, &doc); err != nil {
			return match.RefreshResult{}, crerr.Wrap(err, "decode json document")
		}
		items = doc.Matches
	}

	fragments := make([]jsonFragment, 0, len(items))
	identities := make([]fragmentIdentity, 0, len(items))
	rawItems := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var fragment jsonFragment
		if err := sonic.Unmarshal(item, &fragment); err != nil {
			continue
		}
		fragments = append(fragments, fragment)
		rawItems = append(rawItems, item)
		identities = append(identities, fragmentIdentity{
			overlayID:  string(fragment.ID),
			internalID: parseInternalID(string(fragment.InternalID)),
			externalID: string(fragment.MatchID),
		})
	}

	idx := locateFragment(identities, target)
	if idx < 0 {
		return match.RefreshResult{}, ErrFragmentNotFound
	}
	result := fragments[idx].result()
	result.RawDocument = string(rawItems[idx])
	return result, nil
}

func parseHTMLDocument(raw []byte, target match.RefreshTarget, layout FragmentLayout) (match.RefreshResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return match.RefreshResult{}, crerr.Wrap(err, "parse html document")
	}

	selection := doc.Find(layout.FragmentSelector)
	identities := make([]fragmentIdentity, 0, selection.Length())
	selection.Each(func(_ int, s *goquery.Selection) {
		identities = append(identities, fragmentIdentity{
			overlayID:  attrText(s, layout.OverlayIDAttr),
			internalID: parseInternalID(attrText(s, layout.InternalIDAttr)),
			externalID: attrText(s, layout.ExternalIDAttr),
		})
	})

	idx := locateFragment(identities, target)
	if idx < 0 {
		return match.RefreshResult{}, ErrFragmentNotFound
	}

	fragment := selection.Eq(idx)
	outer, err := goquery.OuterHtml(fragment)
	if err != nil {
		return match.RefreshResult{}, crerr.Wrap(err, "render match fragment")
	}
	result := match.RefreshResult{RawDocument: outer}
	result.Time = fieldText(fragment, layout.TimeSelector, &result, match.RefreshTime)
	result.Stage = fieldText(fragment, layout.StageSelector, &result, match.RefreshStage)
	result.HomeScore = fieldText(fragment, layout.HomeScoreSelector, &result, match.RefreshHomeScore)
	result.AwayScore = fieldText(fragment, layout.AwayScoreSelector, &result, match.RefreshAwayScore)
	return result, nil
}

func attrText(s *goquery.Selection, name string) string {
	value, _ := s.Attr(name)
	return strings.TrimSpace(value)
}

// fieldText marks field as found only when selector matches an element; an
// element with empty text still counts.
func fieldText(s *goquery.Selection, selector string, out *match.RefreshResult, field match.RefreshField) string {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	out.Found |= field
	return strings.Join(strings.Fields(found.Text()), " ")
}

func parseInternalID(value string) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}
