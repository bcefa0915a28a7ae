// Package catalog defines the tool catalog data model and the repository
// interfaces the compatibility engine reads from.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Score bounds for tools and compatibility edges.
const (
	MinQuality = 0.0
	MaxQuality = 10.0

	MinScore = 0
	MaxScore = 100
)

// Tool is a catalogued piece of software or service.
type Tool struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	CategoryID           int64     `json:"category_id"`
	Description          string    `json:"description,omitempty"`
	URL                  string    `json:"url,omitempty"`
	Pricing              string    `json:"pricing,omitempty"`
	Version              string    `json:"version,omitempty"`
	Frameworks           []string  `json:"frameworks,omitempty"`
	Languages            []string  `json:"supported_languages,omitempty"`
	Features             []string  `json:"features,omitempty"`
	NativeIntegrations   []string  `json:"native_integrations,omitempty"`
	VerifiedIntegrations []string  `json:"verified_integrations,omitempty"`
	Strengths            []string  `json:"notable_strengths,omitempty"`
	Limitations          []string  `json:"known_limitations,omitempty"`
	MaturityScore        float64   `json:"maturity_score"`
	PopularityScore      float64   `json:"popularity_score"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Quality is the tie-breaking signal used when ranking tools.
func (t Tool) Quality() float64 {
	return t.MaturityScore + t.PopularityScore
}

// Validate checks the fields every backend requires before persisting.
func (t *Tool) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: tool name is required", ErrInvalid)
	}
	if t.CategoryID <= 0 {
		return fmt.Errorf("%w: tool %q has no category", ErrInvalid, t.Name)
	}
	if t.MaturityScore < MinQuality || t.MaturityScore > MaxQuality {
		return fmt.Errorf("%w: maturity score %.1f outside %.0f..%.0f", ErrInvalid, t.MaturityScore, MinQuality, MaxQuality)
	}
	if t.PopularityScore < MinQuality || t.PopularityScore > MaxQuality {
		return fmt.Errorf("%w: popularity score %.1f outside %.0f..%.0f", ErrInvalid, t.PopularityScore, MinQuality, MaxQuality)
	}
	return nil
}

// Category groups tools by role, e.g. "Database" or "Deployment".
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Difficulty rates how much work an integration takes.
type Difficulty string

const (
	DifficultyUnknown Difficulty = ""
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyUnknown, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Compatibility is an undirected, scored edge between two distinct tools.
// Backends store edges canonically with ToolOneID < ToolTwoID.
type Compatibility struct {
	ID           int64      `json:"id"`
	ToolOneID    int64      `json:"tool_one_id"`
	ToolTwoID    int64      `json:"tool_two_id"`
	Score        int        `json:"compatibility_score"`
	Notes        string     `json:"notes,omitempty"`
	Verified     bool       `json:"verified_integration"`
	Difficulty   Difficulty `json:"integration_difficulty,omitempty"`
	SetupSteps   []string   `json:"setup_steps,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Pair returns the canonical pair key of the edge.
func (c Compatibility) Pair() Pair {
	return NewPair(c.ToolOneID, c.ToolTwoID)
}

// Touches reports whether the edge has id as one of its ends.
func (c Compatibility) Touches(id int64) bool {
	return c.ToolOneID == id || c.ToolTwoID == id
}

// Other returns the end of the edge opposite to id.
func (c Compatibility) Other(id int64) int64 {
	if c.ToolOneID == id {
		return c.ToolTwoID
	}
	return c.ToolOneID
}

// Validate checks the edge invariants and canonicalizes its end order.
func (c *Compatibility) Validate() error {
	if c.ToolOneID <= 0 || c.ToolTwoID <= 0 {
		return fmt.Errorf("%w: compatibility needs two tool ids", ErrInvalid)
	}
	if c.ToolOneID == c.ToolTwoID {
		return fmt.Errorf("%w: compatibility between tool %d and itself", ErrInvalid, c.ToolOneID)
	}
	if c.Score < MinScore || c.Score > MaxScore {
		return fmt.Errorf("%w: compatibility score %d outside %d..%d", ErrInvalid, c.Score, MinScore, MaxScore)
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown integration difficulty %q", ErrInvalid, c.Difficulty)
	}
	p := c.Pair()
	c.ToolOneID, c.ToolTwoID = p.Lo, p.Hi
	return nil
}

// Pair is the canonical key of an unordered tool pair.
type Pair struct {
	Lo int64
	Hi int64
}

// NewPair orders a and b so that (a, b) and (b, a) yield the same key.
func NewPair(a, b int64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Lo: a, Hi: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("%d:%d", p.Lo, p.Hi)
}
