package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/announcement"
)

const announcementColumns = `id, title, content, created_by, target_audience, course_id, is_active, created_at, updated_at`

type announcementRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	CreatedBy string      `db:"created_by"`
	Audience  string      `db:"target_audience"`
	CourseID  null.String `db:"course_id"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func newAnnouncementRow(a announcement.Announcement) announcementRow {
	return announcementRow{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		CreatedBy: a.CreatedBy,
		Audience:  a.Audience,
		CourseID:  nullString(a.CourseID),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (row announcementRow) announcement() announcement.Announcement {
	return announcement.Announcement{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		CreatedBy: row.CreatedBy,
		Audience:  row.Audience,
		CourseID:  row.CourseID.String,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type announcementRepository struct {
	exec core.DBExecutor
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) announcement.Repository {
	return &announcementRepository{exec: exec}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	const q = `INSERT INTO announcements (` + announcementColumns + `) VALUES (
		:id, :title, :content, :created_by, :target_audience, :course_id, :is_active, :created_at, :updated_at
	)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, newAnnouncementRow(a)); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announcement.Announcement, error) {
	var row announcementRow
	q := repo.exec.Rebind("SELECT " + announcementColumns + " FROM announcements WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "selecting announcement")
	}
	return row.announcement(), nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, filter announcement.QueryFilter) ([]announcement.Announcement, error) {
	var conds conditions
	if filter.ActiveOnly {
		conds.add("is_active")
	}
	if len(filter.Audiences) > 0 {
		conds.add("target_audience = ANY(?)", pq.Array(filter.Audiences))
	}
	if filter.CourseID != "" {
		conds.add("course_id = ?", filter.CourseID)
	}

	var rows []announcementRow
	q := repo.exec.Rebind("SELECT " + announcementColumns + " FROM announcements" + conds.where() + " ORDER BY created_at DESC, id")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}

	announcements := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		announcements = append(announcements, row.announcement())
	}
	return announcements, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	const q = `UPDATE announcements SET
		title = :title, content = :content, target_audience = :target_audience, is_active = :is_active,
		updated_at = :updated_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, newAnnouncementRow(a))
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return a, nil
}
