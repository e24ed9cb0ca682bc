package jobs

import (
	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
)

// Hash field names of a job record.
const (
	fieldID              = "id"
	fieldTitle           = "title"
	fieldCompany         = "company"
	fieldDescription     = "description"
	fieldLocation        = "location"
	fieldExperienceLevel = "experience_level"
	fieldEmploymentType  = "employment_type"
	fieldIndustry        = "industry"
	fieldSalaryRange     = "salary_range"
	fieldRequiredSkills  = "required_skills"
	fieldNiceSkills      = "nice_to_have_skills"
	fieldSkills          = "skills"
	fieldActive          = "active"
	fieldHasEmbedding    = "has_embedding"
	fieldSeq             = "seq"
	fieldPostedAt        = "posted_at"
	fieldEmbedding       = "embedding"
	fieldEmbeddedAt      = "embedded_at"
)

// Hash field names of a user record.
const (
	userTitle          = "title"
	userIndustry       = "industry"
	userSkills         = "skills"
	userWorkPreference = "work_preference"
	userCreatedAt      = "created_at"
	userUpdatedAt      = "updated_at"
	prefText           = "pref_text"
	prefEmbedding      = "pref_embedding"
	prefUpdatedAt      = "pref_updated_at"
)

const (
	tagTrue  = "true"
	tagFalse = "false"

	// listSeparator joins multi-valued fields; facet values may contain commas.
	listSeparator = "|"

	defaultHNSWM           = 16
	defaultHNSWEFConstruct = 200
)

// facetFields maps filter facets onto indexed TAG fields.
var facetFields = map[filter.Facet]string{
	filter.ExperienceLevel: fieldExperienceLevel,
	filter.EmploymentType:  fieldEmploymentType,
	filter.Industry:        fieldIndustry,
	filter.Location:        fieldLocation,
}

// textFields are the BM25-searchable fields.
var textFields = []string{fieldTitle, fieldDescription, fieldSkills}

// summaryFields are returned by every listing query.
var summaryFields = []string{
	fieldID, fieldTitle, fieldCompany, fieldLocation, fieldExperienceLevel,
	fieldEmploymentType, fieldIndustry, fieldSalaryRange, fieldPostedAt,
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(r.IndexName()).
		Prefix(r.jobPrefix()).
		TagSeparated(fieldExperienceLevel, listSeparator).
		TagSeparated(fieldEmploymentType, listSeparator).
		TagSeparated(fieldIndustry, listSeparator).
		TagSeparated(fieldLocation, listSeparator).
		Tag(fieldActive).
		Tag(fieldHasEmbedding).
		Text(fieldTitle, 2).
		Text(fieldDescription, 0).
		Text(fieldSkills, 1.5).
		SortableNumeric(fieldSeq).
		SortableNumeric(fieldPostedAt).
		VectorHNSW(fieldEmbedding, db.VectorSpec{
			Dim:            r.dims,
			Distance:       db.DistanceCosine,
			M:              r.hnswM,
			EFConstruction: r.hnswEF,
		}).
		Build()
}

// activeFilter restricts queries to active jobs matching every facet of fs.
func activeFilter(fs filter.Set) []db.Condition {
	conds := []db.Condition{db.TagEquals(fieldActive, tagTrue)}
	for _, c := range fs.Conditions() {
		conds = append(conds, db.TagEquals(facetFields[c.Facet()], c.Value()))
	}
	return conds
}
