package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
)

type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	Audience  string    `json:"target_audience"`
	CourseID  string    `json:"course_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (a Announcement) target() access.Target {
	return access.Target{Kind: access.KindAnnouncement, CreatorID: a.CreatedBy, Audience: a.Audience}
}

// NewAnnouncement contains information needed to post an Announcement.
type NewAnnouncement struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=5000"`
	Audience string `json:"target_audience" validate:"omitempty,oneof=all students teachers admin"`
	CourseID string `json:"course_id"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	na.CourseID = core.CleanString(na.CourseID)
	if na.Audience == "" {
		na.Audience = access.AudienceAll
	}
	return validate.Struct(na)
}

// UpdateAnnouncement defines what may be changed on an Announcement; empty fields keep the current value.
type UpdateAnnouncement struct {
	Title    string `json:"title" validate:"max=200"`
	Content  string `json:"content" validate:"max=5000"`
	Audience string `json:"target_audience" validate:"omitempty,oneof=all students teachers admin"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Content = core.CleanString(ua.Content)
	ua.Audience = core.CleanString(ua.Audience, true /* lower */)
	return validate.Struct(ua)
}

func (ua UpdateAnnouncement) apply(a *Announcement) {
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Content != "" {
		a.Content = ua.Content
	}
	if ua.Audience != "" {
		a.Audience = ua.Audience
	}
}

type QueryFilter struct {
	ActiveOnly bool
	Audiences  []string // empty: any
	CourseID   string
}

func (qf QueryFilter) Match(a Announcement) bool {
	if qf.ActiveOnly && !a.IsActive {
		return false
	}
	if len(qf.Audiences) > 0 && !core.ContainsString(qf.Audiences, a.Audience) {
		return false
	}
	if qf.CourseID != "" && a.CourseID != qf.CourseID {
		return false
	}
	return true
}
