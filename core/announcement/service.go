package announcement

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/course"
)

// ErrNotFound is also returned for deactivated announcements.
var ErrNotFound = core.NewNotFoundError("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncementByID(ctx context.Context, id string) (Announcement, error)
		// QueryAnnouncements returns matching announcements, newest first.
		QueryAnnouncements(ctx context.Context, filter QueryFilter) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
	}

	CourseFinder interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo     Repository
		courses  CourseFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, courses CourseFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, courses: courses, validate: validate}
}

func (svc *Service) Create(ctx context.Context, actor access.Actor, na NewAnnouncement) (Announcement, error) {
	if err := access.Authorize(actor, access.Write, access.Target{Kind: access.KindAnnouncement}); err != nil {
		return Announcement{}, err
	}
	if err := na.Validate(svc.validate); err != nil {
		return Announcement{}, err
	}
	if na.CourseID != "" {
		if _, err := svc.courses.GetCourseByID(ctx, na.CourseID); err != nil {
			return Announcement{}, errors.Wrap(err, "finding course by ID")
		}
	}

	now := account.NowFunc().UTC()
	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:        uuid.New().String(),
		Title:     na.Title,
		Content:   na.Content,
		CreatedBy: actor.ID,
		Audience:  na.Audience,
		CourseID:  na.CourseID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return a, errors.Wrap(err, "creating announcement")
}

// List returns the active announcements visible to the actor, newest first.
func (svc *Service) List(ctx context.Context, actor access.Actor, courseID string) ([]Announcement, error) {
	if actor.ID == "" {
		return nil, access.ErrForbidden
	}
	audiences := access.VisibleAudiences(actor.Role)
	if len(audiences) == 0 {
		return []Announcement{}, nil
	}
	return svc.repo.QueryAnnouncements(ctx, QueryFilter{ActiveOnly: true, Audiences: audiences, CourseID: courseID})
}

func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Announcement, error) {
	a, err := svc.getActive(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if err = access.Authorize(actor, access.Read, a.target()); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, ua UpdateAnnouncement) (Announcement, error) {
	a, err := svc.getActive(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if err = access.Authorize(actor, access.Write, a.target()); err != nil {
		return Announcement{}, err
	}
	if err = ua.Validate(svc.validate); err != nil {
		return Announcement{}, err
	}

	ua.apply(&a)
	a.UpdatedAt = account.NowFunc().UTC()
	a, err = svc.repo.UpdateAnnouncement(ctx, a)
	return a, errors.Wrap(err, "updating announcement")
}

// Delete deactivates an announcement; it is kept in storage.
func (svc *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	a, err := svc.getActive(ctx, id)
	if err != nil {
		return err
	}
	if err = access.Authorize(actor, access.Write, a.target()); err != nil {
		return err
	}

	a.IsActive = false
	a.UpdatedAt = account.NowFunc().UTC()
	_, err = svc.repo.UpdateAnnouncement(ctx, a)
	return errors.Wrap(err, "deactivating announcement")
}

func (svc *Service) getActive(ctx context.Context, id string) (Announcement, error) {
	a, err := svc.repo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !a.IsActive {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}
