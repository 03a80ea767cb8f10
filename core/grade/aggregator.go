package grade

// Component weights, in percent.
const (
	MidtermWeight       = 30
	FinalsWeight        = 40
	ProjectsWeight      = 20
	ParticipationWeight = 10
)

// Components are the four optional scores of a grade record, each in [0,100].
type Components struct {
	Midterm       *int `json:"midterm" validate:"omitempty,min=0,max=100"`
	Finals        *int `json:"finals" validate:"omitempty,min=0,max=100"`
	Projects      *int `json:"projects" validate:"omitempty,min=0,max=100"`
	Participation *int `json:"participation" validate:"omitempty,min=0,max=100"`
}

func (c Components) IsEmpty() bool {
	return c.Midterm == nil && c.Finals == nil && c.Projects == nil && c.Participation == nil
}

// merge overwrites the components of c that are set in other.
func (c *Components) merge(other Components) {
	if other.Midterm != nil {
		c.Midterm = other.Midterm
	}
	if other.Finals != nil {
		c.Finals = other.Finals
	}
	if other.Projects != nil {
		c.Projects = other.Projects
	}
	if other.Participation != nil {
		c.Participation = other.Participation
	}
}

// FinalGrade sums each present component times its weight and rounds half up.
// Missing components contribute nothing; the weights of present components are not renormalized.
// It returns nil when no component is present.
func FinalGrade(c Components) *int {
	if c.IsEmpty() {
		return nil
	}

	var total int // in hundredths
	for _, part := range []struct {
		score  *int
		weight int
	}{
		{c.Midterm, MidtermWeight},
		{c.Finals, FinalsWeight},
		{c.Projects, ProjectsWeight},
		{c.Participation, ParticipationWeight},
	} {
		if part.score != nil {
			total += *part.score * part.weight
		}
	}

	final := (total + 50) / 100
	return &final
}
