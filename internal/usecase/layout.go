package usecase

import "math"

// LayoutConfig holds the pixel constants used to estimate the board height.
type LayoutConfig struct {
	BasePadding       int
	SportHeader       int
	CompetitionHeader int
	CompetitionMargin int
	MatchRow          int
	EmptyStateHeight  int
	ScreenHeight      int
	MaxHeightFraction float64
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		BasePadding:       60,
		SportHeader:       32,
		CompetitionHeader: 40,
		CompetitionMargin: 8,
		MatchRow:          56,
		EmptyStateHeight:  180,
		ScreenHeight:      1080,
		MaxHeightFraction: 0.85,
	}
}

// normalize fills zero or invalid fields from the defaults.
func (c LayoutConfig) normalize() LayoutConfig {
	def := DefaultLayoutConfig()
	if c.BasePadding < 0 {
		c.BasePadding = def.BasePadding
	}
	if c.SportHeader <= 0 {
		c.SportHeader = def.SportHeader
	}
	if c.CompetitionHeader <= 0 {
		c.CompetitionHeader = def.CompetitionHeader
	}
	if c.CompetitionMargin < 0 {
		c.CompetitionMargin = def.CompetitionMargin
	}
	if c.MatchRow <= 0 {
		c.MatchRow = def.MatchRow
	}
	if c.EmptyStateHeight <= 0 {
		c.EmptyStateHeight = def.EmptyStateHeight
	}
	if c.ScreenHeight <= 0 {
		c.ScreenHeight = def.ScreenHeight
	}
	if c.MaxHeightFraction <= 0 || c.MaxHeightFraction > 1 {
		c.MaxHeightFraction = def.MaxHeightFraction
	}
	return c
}

// MaxHeight is the clamp applied to every non-empty board.
func (c LayoutConfig) MaxHeight() int {
	c = c.normalize()
	return int(math.Floor(float64(c.ScreenHeight) * c.MaxHeightFraction))
}

// DisplayHeight estimates the board height from the shape of the hierarchy.
// Zero groups yields the fixed empty-state height whatever the match count.
func (c LayoutConfig) DisplayHeight(sportGroups, competitionGroups, matches int) int {
	c = c.normalize()
	if sportGroups <= 0 || competitionGroups <= 0 {
		return c.EmptyStateHeight
	}

	height := c.BasePadding +
		sportGroups*c.SportHeader +
		competitionGroups*(c.CompetitionHeader+c.CompetitionMargin) +
		max(matches, 0)*c.MatchRow

	return min(height, c.MaxHeight())
}
