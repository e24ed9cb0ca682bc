package job

import (
	"fmt"
	"strings"
	"time"
)

// MaxIDLength bounds job identifiers.
const MaxIDLength = 128

// Job is a job listing as stored in the remote store.
type Job struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	ExperienceLevel  string    `json:"experience_level"`
	EmploymentType   string    `json:"employment_type"`
	Industry         string    `json:"industry"`
	SalaryRange      string    `json:"salary_range"`
	RequiredSkills   []string  `json:"required_skills"`
	NiceToHaveSkills []string  `json:"nice_to_have_skills"`
	Active           bool      `json:"active"`
	PostedAt         time.Time `json:"posted_at"`
}

// Validate checks the fields the store relies on.
func (j *Job) Validate() error {
	if err := ValidateID(j.ID); err != nil {
		return err
	}
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("job title is required")
	}
	return nil
}

// Skills returns required followed by nice-to-have skill names.
func (j *Job) Skills() []string {
	out := make([]string, 0, len(j.RequiredSkills)+len(j.NiceToHaveSkills))
	out = append(out, j.RequiredSkills...)
	out = append(out, j.NiceToHaveSkills...)
	return out
}

// Summary projects the scalar fields shown in result lists.
func (j *Job) Summary() Summary {
	return Summary{
		ID:              j.ID,
		Title:           j.Title,
		Company:         j.Company,
		Location:        j.Location,
		ExperienceLevel: j.ExperienceLevel,
		EmploymentType:  j.EmploymentType,
		Industry:        j.Industry,
		SalaryRange:     j.SalaryRange,
		PostedAt:        j.PostedAt,
	}
}

// ValidateID checks that id is usable as a storage key component: [a-zA-Z0-9_-], bounded length.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("job id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("job id too long (max %d chars)", MaxIDLength)
	}
	for _, r := range id {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return fmt.Errorf("job id %q contains invalid characters", id)
		}
	}
	return nil
}

// Summary is the scalar description of a job.
type Summary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	ExperienceLevel string    `json:"experience_level"`
	EmploymentType  string    `json:"employment_type"`
	Industry        string    `json:"industry"`
	SalaryRange     string    `json:"salary_range"`
	PostedAt        time.Time `json:"posted_at"`
}

// Similar is a nearest-neighbor hit for an existing job.
type Similar struct {
	Summary
	Similarity float64 `json:"similarity"`
}

// Candidate is an active job that still lacks an embedding.
type Candidate struct {
	ID          string
	Seq         int64
	Title       string
	Description string
	Skills      []string
}

// Text concatenates title, description and skill names into the blob that gets embedded.
func (c Candidate) Text() string {
	parts := make([]string, 0, 3)
	parts = append(parts, c.Title, c.Description)
	parts = append(parts, strings.Join(c.Skills, " "))
	return strings.Join(parts, " ")
}
