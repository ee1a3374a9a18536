// Package catalog holds the static intervention table: each intervention type
// maps to a projected composite delta, a description and an estimated time to
// complete. The table is immutable configuration injected at startup; lookups
// are pure functions of the type.
package catalog

import (
	"fmt"

	"github.com/spf13/viper"
)

// InterventionType is a closed enum of corrective actions. Unknown strings are
// a validation-time concern, not a silent no-op.
type InterventionType string

const (
	AcademicImprovement   InterventionType = "academic_improvement"
	ResumeImprovement     InterventionType = "resume_improvement"
	MockInterview         InterventionType = "mock_interview"
	AttendanceImprovement InterventionType = "attendance_improvement"
	SkillTraining         InterventionType = "skill_training"
	ProjectAddition       InterventionType = "project_addition"
)

// knownTypes is the closed set of valid intervention types
var knownTypes = map[InterventionType]bool{
	AcademicImprovement:   true,
	ResumeImprovement:     true,
	MockInterview:         true,
	AttendanceImprovement: true,
	SkillTraining:         true,
	ProjectAddition:       true,
}

// IsKnownType reports whether t is a valid intervention type
func IsKnownType(t InterventionType) bool {
	return knownTypes[t]
}

// Definition is one immutable catalog entry
type Definition struct {
	Type          InterventionType `json:"type" mapstructure:"type"`
	ScoreDelta    int              `json:"score_delta" mapstructure:"score_delta"`
	Description   string           `json:"description" mapstructure:"description"`
	EstimatedTime string           `json:"estimated_time" mapstructure:"estimated_time"`
}

// Catalog is the read-only intervention table
type Catalog struct {
	defs  map[InterventionType]Definition
	order []InterventionType
}

// Default returns the built-in catalog
func Default() *Catalog {
	return build([]Definition{
		{
			Type:          AcademicImprovement,
			ScoreDelta:    10,
			Description:   "Structured study plan and tutoring to raise term scores",
			EstimatedTime: "1 semester",
		},
		{
			Type:          ResumeImprovement,
			ScoreDelta:    10,
			Description:   "Rewrite resume sections and strengthen project descriptions",
			EstimatedTime: "2 weeks",
		},
		{
			Type:          MockInterview,
			ScoreDelta:    12,
			Description:   "Practice interviews with feedback on weak areas",
			EstimatedTime: "1 week",
		},
		{
			Type:          AttendanceImprovement,
			ScoreDelta:    5,
			Description:   "Attendance recovery plan with weekly check-ins",
			EstimatedTime: "1 month",
		},
		{
			Type:          SkillTraining,
			ScoreDelta:    8,
			Description:   "Targeted skill course aligned with open job requirements",
			EstimatedTime: "1 month",
		},
		{
			Type:          ProjectAddition,
			ScoreDelta:    7,
			Description:   "Build and publish an additional portfolio project",
			EstimatedTime: "3 weeks",
		},
	})
}

// Load reads a catalog override file (YAML, key "interventions"). An empty
// path returns the built-in defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var defs []Definition
	if err := v.UnmarshalKey("interventions", &defs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no interventions", path)
	}

	for _, d := range defs {
		if !IsKnownType(d.Type) {
			return nil, fmt.Errorf("unknown intervention type %q in catalog file %s", d.Type, path)
		}
		if d.ScoreDelta <= 0 {
			return nil, fmt.Errorf("intervention %q must have a positive score delta", d.Type)
		}
	}

	return build(defs), nil
}

func build(defs []Definition) *Catalog {
	c := &Catalog{
		defs:  make(map[InterventionType]Definition, len(defs)),
		order: make([]InterventionType, 0, len(defs)),
	}
	for _, d := range defs {
		if _, dup := c.defs[d.Type]; dup {
			continue
		}
		c.defs[d.Type] = d
		c.order = append(c.order, d.Type)
	}
	return c
}

// Lookup returns the definition for a type
func (c *Catalog) Lookup(t InterventionType) (Definition, bool) {
	d, ok := c.defs[t]
	return d, ok
}

// Definitions returns all entries in declaration order
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.defs[t])
	}
	return out
}

// Len returns the number of catalog entries
func (c *Catalog) Len() int {
	return len(c.defs)
}
