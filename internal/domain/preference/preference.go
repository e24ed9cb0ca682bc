package preference

import (
	"strings"
	"time"

	"github.com/smartapply/jobsearch/internal/domain"
)

// Placeholder attributes written when a user profile is created on demand.
const (
	PlaceholderTitle          = "Job Seeker"
	PlaceholderIndustry       = "Technology"
	PlaceholderWorkPreference = "flexible"
)

// Profile is a user's preference text and its embedding.
type Profile struct {
	OwnerID     string
	Text        string
	Embedding   domain.Embedding
	LastUpdated time.Time
}

// HasEmbedding reports whether the profile can drive personalized search.
func (p *Profile) HasEmbedding() bool { return len(p.Embedding) > 0 }

// Attributes are the stored user profile fields preference text is derived from.
type Attributes struct {
	Title          string   `json:"title"`
	Industry       string   `json:"industry"`
	Skills         []string `json:"skills"`
	WorkPreference string   `json:"work_preference"`
}

// Placeholder returns the attributes used for a freshly created profile.
func Placeholder() Attributes {
	return Attributes{
		Title:          PlaceholderTitle,
		Industry:       PlaceholderIndustry,
		WorkPreference: PlaceholderWorkPreference,
	}
}

// DefaultText derives the preference text from profile attributes.
// Empty attributes are skipped; the result is never empty.
func (a Attributes) DefaultText() string {
	var parts []string
	if t := strings.TrimSpace(a.Title); t != "" {
		parts = append(parts, "Looking for "+t+" roles")
	}
	if i := strings.TrimSpace(a.Industry); i != "" {
		parts = append(parts, "in the "+i+" industry")
	}
	if skills := nonEmpty(a.Skills); len(skills) > 0 {
		parts = append(parts, "using skills: "+strings.Join(skills, ", "))
	}
	if w := strings.TrimSpace(a.WorkPreference); w != "" {
		parts = append(parts, "with "+w+" work arrangement")
	}
	if len(parts) == 0 {
		return Placeholder().DefaultText()
	}
	return strings.Join(parts, " ")
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
