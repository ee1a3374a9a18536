package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullSections() ResumeSections {
	return ResumeSections{
		PersonalInfo: PersonalInfo{Name: "Asha Rao", Email: "asha@example.com"},
		Summary:      "Final-year student focused on backend systems",
		Education:    []EducationEntry{{Institution: "NIT Trichy", Degree: "B.Tech"}},
		Experience:   []ExperienceEntry{{Company: "Acme", Role: "Intern", Months: 3}},
		Skills:       []string{"Go", "SQL"},
		Projects:     []Project{{Name: "Inventory API"}},
		Certifications: []string{
			"AWS Cloud Practitioner",
		},
	}
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ResumeSections)
		expected float64
	}{
		{"all sections present", func(s *ResumeSections) {}, 100},
		{"empty resume", func(s *ResumeSections) { *s = ResumeSections{} }, 0},
		{"missing experience", func(s *ResumeSections) { s.Experience = nil }, 80},
		{"missing projects", func(s *ResumeSections) { s.Projects = nil }, 85},
		{"missing certifications", func(s *ResumeSections) { s.Certifications = nil }, 90},
		{"name without email gets no contact credit", func(s *ResumeSections) { s.PersonalInfo.Email = "" }, 85},
		{"short summary gets no credit", func(s *ResumeSections) { s.Summary = "too short" }, 90},
		{"summary at minimum length counts", func(s *ResumeSections) { s.Summary = "12345678901234567890" }, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := fullSections()
			tt.mutate(&sections)
			assert.InDelta(t, tt.expected, sections.Completeness(), 1e-9)
		})
	}
}

func TestProjectCount(t *testing.T) {
	sections := fullSections()
	assert.Equal(t, 1, sections.ProjectCount())

	sections.Projects = nil
	assert.Equal(t, 0, sections.ProjectCount())
}
