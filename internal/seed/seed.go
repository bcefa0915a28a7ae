// Package seed loads catalog documents from YAML and applies them to any
// catalog.Backend. Applying a document twice is a no-op the second time
// apart from refreshed timestamps.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/julianshen/stackharmony/internal/catalog"
)

//go:embed catalog.yaml
var builtin []byte

// Document is a seed file.
type Document struct {
	Categories      []string `yaml:"categories"`
	Tools           []Tool   `yaml:"tools"`
	Compatibilities []Edge   `yaml:"compatibilities"`
}

// Tool is a catalog tool referencing its category by name.
type Tool struct {
	Name                 string   `yaml:"name"`
	Category             string   `yaml:"category"`
	Description          string   `yaml:"description"`
	URL                  string   `yaml:"url"`
	Pricing              string   `yaml:"pricing"`
	Version              string   `yaml:"version"`
	Frameworks           []string `yaml:"frameworks"`
	Languages            []string `yaml:"languages"`
	Features             []string `yaml:"features"`
	NativeIntegrations   []string `yaml:"native_integrations"`
	VerifiedIntegrations []string `yaml:"verified_integrations"`
	Strengths            []string `yaml:"strengths"`
	Limitations          []string `yaml:"limitations"`
	Maturity             float64  `yaml:"maturity"`
	Popularity           float64  `yaml:"popularity"`
}

// Edge is a compatibility edge referencing its tools by name.
type Edge struct {
	Tools        [2]string          `yaml:"tools"`
	Score        int                `yaml:"score"`
	Notes        string             `yaml:"notes"`
	Verified     bool               `yaml:"verified"`
	Difficulty   catalog.Difficulty `yaml:"difficulty"`
	SetupSteps   []string           `yaml:"setup_steps"`
	Dependencies []string           `yaml:"dependencies"`
}

// Result counts what Apply changed.
type Result struct {
	CategoriesCreated int `json:"categories_created"`
	ToolsCreated      int `json:"tools_created"`
	ToolsUpdated      int `json:"tools_updated"`
	EdgesCreated      int `json:"edges_created"`
	EdgesUpdated      int `json:"edges_updated"`
}

// Parse decodes a seed document and checks that edges name declared tools.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads a seed file, or the built-in catalog when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data)
}

// Builtin returns the sample catalog shipped with the binary.
func Builtin() (*Document, error) {
	return Parse(builtin)
}

func (d *Document) validate() error {
	tools := make(map[string]struct{}, len(d.Tools))
	for i, t := range d.Tools {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: seed tool %d has no name", catalog.ErrInvalid, i)
		}
		if strings.TrimSpace(t.Category) == "" {
			return fmt.Errorf("%w: seed tool %q has no category", catalog.ErrInvalid, t.Name)
		}
		tools[strings.ToLower(t.Name)] = struct{}{}
	}
	for i, e := range d.Compatibilities {
		for _, name := range e.Tools {
			if _, ok := tools[strings.ToLower(name)]; !ok {
				return fmt.Errorf("%w: seed edge %d references unknown tool %q", catalog.ErrInvalid, i, name)
			}
		}
	}
	return nil
}

// Apply upserts the document into b. Categories and tools are matched by
// name; edges by their unordered tool pair.
func Apply(ctx context.Context, b catalog.Backend, doc *Document, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result

	categories := make(map[string]int64)
	want := append([]string{}, doc.Categories...)
	for _, t := range doc.Tools {
		want = append(want, t.Category)
	}
	for _, name := range want {
		key := strings.ToLower(name)
		if _, ok := categories[key]; ok {
			continue
		}
		id, created, err := ensureCategory(ctx, b.Categories(), name)
		if err != nil {
			return res, err
		}
		if created {
			res.CategoriesCreated++
		}
		categories[key] = id
	}

	toolIDs := make(map[string]int64, len(doc.Tools))
	for _, st := range doc.Tools {
		t := st.catalogTool(categories[strings.ToLower(st.Category)])
		existing, err := b.Tools().GetByName(ctx, st.Name)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			if err := b.Tools().Create(ctx, &t); err != nil {
				return res, fmt.Errorf("create tool %q: %w", st.Name, err)
			}
			res.ToolsCreated++
		case err != nil:
			return res, fmt.Errorf("find tool %q: %w", st.Name, err)
		default:
			t.ID = existing.ID
			if err := b.Tools().Update(ctx, &t); err != nil {
				return res, fmt.Errorf("update tool %q: %w", st.Name, err)
			}
			res.ToolsUpdated++
		}
		toolIDs[strings.ToLower(st.Name)] = t.ID
	}

	for _, se := range doc.Compatibilities {
		e := catalog.Compatibility{
			ToolOneID:    toolIDs[strings.ToLower(se.Tools[0])],
			ToolTwoID:    toolIDs[strings.ToLower(se.Tools[1])],
			Score:        se.Score,
			Notes:        se.Notes,
			Verified:     se.Verified,
			Difficulty:   se.Difficulty,
			SetupSteps:   se.SetupSteps,
			Dependencies: se.Dependencies,
		}
		existing, err := b.Compatibilities().GetByPair(ctx, e.ToolOneID, e.ToolTwoID)
		if err != nil {
			return res, fmt.Errorf("find edge %s/%s: %w", se.Tools[0], se.Tools[1], err)
		}
		if existing == nil {
			if err := b.Compatibilities().Create(ctx, &e); err != nil {
				return res, fmt.Errorf("create edge %s/%s: %w", se.Tools[0], se.Tools[1], err)
			}
			res.EdgesCreated++
			continue
		}
		if err := b.Compatibilities().Update(ctx, &e); err != nil {
			return res, fmt.Errorf("update edge %s/%s: %w", se.Tools[0], se.Tools[1], err)
		}
		res.EdgesUpdated++
	}

	log.Info("seed applied",
		zap.Int("categories_created", res.CategoriesCreated),
		zap.Int("tools_created", res.ToolsCreated),
		zap.Int("tools_updated", res.ToolsUpdated),
		zap.Int("edges_created", res.EdgesCreated),
		zap.Int("edges_updated", res.EdgesUpdated))
	return res, nil
}

func ensureCategory(ctx context.Context, repo catalog.CategoryRepository, name string) (int64, bool, error) {
	c, err := repo.CategoryByName(ctx, name)
	if err == nil {
		return c.ID, false, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return 0, false, fmt.Errorf("find category %q: %w", name, err)
	}
	nc := catalog.Category{Name: name}
	if err := repo.CreateCategory(ctx, &nc); err != nil {
		return 0, false, fmt.Errorf("create category %q: %w", name, err)
	}
	return nc.ID, true, nil
}

func (t Tool) catalogTool(categoryID int64) catalog.Tool {
	return catalog.Tool{
		Name:                 t.Name,
		CategoryID:           categoryID,
		Description:          t.Description,
		URL:                  t.URL,
		Pricing:              t.Pricing,
		Version:              t.Version,
		Frameworks:           t.Frameworks,
		Languages:            t.Languages,
		Features:             t.Features,
		NativeIntegrations:   t.NativeIntegrations,
		VerifiedIntegrations: t.VerifiedIntegrations,
		Strengths:            t.Strengths,
		Limitations:          t.Limitations,
		MaturityScore:        t.Maturity,
		PopularityScore:      t.Popularity,
	}
}
