package readiness

// ResumeSnapshot is the resume-derived input to the score engine: the
// AI-assessed quality score plus the structured sections used for the
// completeness component.
type ResumeSnapshot struct {
	AIScore  float64        `json:"ai_score"`
	Sections ResumeSections `json:"sections"`
}

// ResumeSections holds the seven tracked resume sections
type ResumeSections struct {
	PersonalInfo   PersonalInfo      `json:"personal_info"`
	Summary        string            `json:"summary"`
	Education      []EducationEntry  `json:"education"`
	Experience     []ExperienceEntry `json:"experience"`
	Skills         []string          `json:"skills"`
	Projects       []Project         `json:"projects"`
	Certifications []string          `json:"certifications"`
}

// PersonalInfo is the contact block of a resume
type PersonalInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// EducationEntry is one education record on a resume
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Year        int    `json:"year,omitempty"`
}

// ExperienceEntry is one work experience record on a resume
type ExperienceEntry struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Months  int    `json:"months,omitempty"`
}

// Project is one listed project on a resume
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Section completeness weights. Each section is awarded in full when it is
// non-empty (or meets the minimal length), else 0. The weights sum to 100.
const (
	personalInfoWeight   = 15
	summaryWeight        = 10
	educationWeight      = 15
	experienceWeight     = 20
	skillsWeight         = 15
	projectsWeight       = 15
	certificationsWeight = 10

	minSummaryLength = 20
)

// Completeness returns the 0-100 section completeness score
func (s ResumeSections) Completeness() float64 {
	total := 0.0
	if s.PersonalInfo.Name != "" && s.PersonalInfo.Email != "" {
		total += personalInfoWeight
	}
	if len(s.Summary) >= minSummaryLength {
		total += summaryWeight
	}
	if len(s.Education) > 0 {
		total += educationWeight
	}
	if len(s.Experience) > 0 {
		total += experienceWeight
	}
	if len(s.Skills) > 0 {
		total += skillsWeight
	}
	if len(s.Projects) > 0 {
		total += projectsWeight
	}
	if len(s.Certifications) > 0 {
		total += certificationsWeight
	}
	return total
}

// ProjectCount returns the number of listed projects
func (s ResumeSections) ProjectCount() int {
	return len(s.Projects)
}
