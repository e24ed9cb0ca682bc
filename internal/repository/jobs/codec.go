package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/preference"
)

// jobFields flattens a job into HSET fields. The embedding is written separately.
func jobFields(j *job.Job, seq int64) map[string]string {
	return map[string]string{
		fieldID:              j.ID,
		fieldTitle:           j.Title,
		fieldCompany:         j.Company,
		fieldDescription:     j.Description,
		fieldLocation:        j.Location,
		fieldExperienceLevel: j.ExperienceLevel,
		fieldEmploymentType:  j.EmploymentType,
		fieldIndustry:        j.Industry,
		fieldSalaryRange:     j.SalaryRange,
		fieldRequiredSkills:  joinList(j.RequiredSkills),
		fieldNiceSkills:      joinList(j.NiceToHaveSkills),
		fieldSkills:          strings.Join(j.Skills(), " "),
		fieldActive:          boolTag(j.Active),
		fieldHasEmbedding:    tagFalse,
		fieldSeq:             strconv.FormatInt(seq, 10),
		fieldPostedAt:        unixString(j.PostedAt),
	}
}

func summaryFromFields(id string, m map[string]string) job.Summary {
	if v := m[fieldID]; v != "" {
		id = v
	}
	return job.Summary{
		ID:              id,
		Title:           m[fieldTitle],
		Company:         m[fieldCompany],
		Location:        m[fieldLocation],
		ExperienceLevel: m[fieldExperienceLevel],
		EmploymentType:  m[fieldEmploymentType],
		Industry:        m[fieldIndustry],
		SalaryRange:     m[fieldSalaryRange],
		PostedAt:        parseUnix(m[fieldPostedAt]),
	}
}

func candidateFromFields(id string, m map[string]string) (job.Candidate, error) {
	seq, err := strconv.ParseInt(m[fieldSeq], 10, 64)
	if err != nil {
		return job.Candidate{}, fmt.Errorf("job %s: bad seq %q: %w", id, m[fieldSeq], err)
	}
	if v := m[fieldID]; v != "" {
		id = v
	}
	skills := splitList(m[fieldRequiredSkills])
	skills = append(skills, splitList(m[fieldNiceSkills])...)
	return job.Candidate{
		ID:          id,
		Seq:         seq,
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		Skills:      skills,
	}, nil
}

func attributesFromFields(m map[string]string) preference.Attributes {
	return preference.Attributes{
		Title:          m[userTitle],
		Industry:       m[userIndustry],
		Skills:         splitList(m[userSkills]),
		WorkPreference: m[userWorkPreference],
	}
}

func profileFromFields(userID string, m map[string]string) (preference.Profile, error) {
	p := preference.Profile{
		OwnerID:     userID,
		Text:        m[prefText],
		LastUpdated: parseUnix(m[prefUpdatedAt]),
	}
	if blob, ok := m[prefEmbedding]; ok && blob != "" {
		vec, err := db.DecodeVector(blob)
		if err != nil {
			return preference.Profile{}, fmt.Errorf("decode preference embedding for %s: %w", userID, err)
		}
		p.Embedding = domain.Embedding(vec)
	}
	return p, nil
}

func joinList(items []string) string {
	clean := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, listSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

func boolTag(b bool) string {
	if b {
		return tagTrue
	}
	return tagFalse
}

func unixString(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func parseUnix(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
