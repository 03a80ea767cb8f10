package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "classbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStudent(id, email, schoolID string, createdAt time.Time) account.Account {
	return account.Account{
		ID:           id,
		SchoolID:     schoolID,
		Email:        email,
		PasswordHash: []byte("hash"),
		FirstName:    "Juan",
		LastName:     "DelaCruz",
		Role:         account.RoleStudent,
		IsActive:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(openTestDB(t))
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	acc, err := repo.CreateAccount(ctx, newStudent("a1", "juan@icc.edu", "STU-1", now))
	require.NoError(t, err)
	assert.Equal(t, []string{}, acc.EnrolledCourses)

	_, err = repo.CreateAccount(ctx, newStudent("a2", "juan@icc.edu", "STU-2", now))
	assert.Equal(t, account.ErrEmailExists, err)
	_, err = repo.CreateAccount(ctx, newStudent("a3", "maria@icc.edu", "STU-1", now))
	assert.Equal(t, account.ErrSchoolIDExists, err)

	_, err = repo.CreateAccount(ctx, newStudent("a0", "ana@icc.edu", "STU-0", now.Add(-time.Hour)))
	require.NoError(t, err)

	got, err := repo.GetAccountByEmail(ctx, "juan@icc.edu")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash, "password hash must be persisted")

	_, err = repo.GetAccountByID(ctx, "missing")
	assert.Equal(t, account.ErrNotFound, err)
	_, err = repo.GetAccountByEmail(ctx, "missing@icc.edu")
	assert.Equal(t, account.ErrNotFound, err)

	accounts, err := repo.QueryAccounts(ctx, account.QueryFilter{Role: account.RoleStudent})
	require.NoError(t, err)
	if assert.Len(t, accounts, 2) {
		assert.Equal(t, "a0", accounts[0].ID, "oldest first")
	}

	got.IsActive = false
	got.EnrolledCourses = []string{"ignored"}
	updated, err := repo.UpdateAccount(ctx, got)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{}, updated.EnrolledCourses)

	inactive := false
	accounts, err = repo.QueryAccounts(ctx, account.QueryFilter{IsActive: &inactive})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestCourseRepository_Enroll(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	accRepo := NewAccountRepository(db)
	repo := NewCourseRepository(db)
	now := time.Now().UTC()

	student, err := accRepo.CreateAccount(ctx, newStudent("s1", "juan@icc.edu", "STU-1", now))
	require.NoError(t, err)
	c, err := repo.CreateCourse(ctx, course.Course{ID: "c1", Code: "CS101", Name: "Intro", Units: 3, Term: 1, CreatedAt: now})
	require.NoError(t, err)

	_, err = repo.CreateCourse(ctx, course.Course{ID: "c2", Code: "CS101", Name: "Dup", Term: 1, CreatedAt: now})
	assert.Equal(t, course.ErrCodeExists, err)

	for i := 0; i < 2; i++ {
		c, err = repo.EnrollStudent(ctx, c.ID, student.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{student.ID}, c.EnrolledStudents)

	student, err = accRepo.GetAccountByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, student.EnrolledCourses)
	assert.Equal(t, []byte("hash"), student.PasswordHash)

	_, err = repo.EnrollStudent(ctx, c.ID, "missing")
	assert.Equal(t, course.ErrStudentNotFound, err)
	_, err = repo.EnrollStudent(ctx, "missing", student.ID)
	assert.Equal(t, course.ErrNotFound, err)

	c.Code = "CS102"
	c.EnrolledStudents = nil
	c, err = repo.UpdateCourse(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []string{student.ID}, c.EnrolledStudents)

	// the old code is free again
	_, err = repo.CreateCourse(ctx, course.Course{ID: "c3", Code: "CS101", Name: "Again", Term: 2, CreatedAt: now})
	assert.NoError(t, err)

	courses, err := repo.QueryCourses(ctx, course.QueryFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestGradeRepository_SaveGradeUpsertsPair(t *testing.T) {
	ctx := context.Background()
	repo := NewGradeRepository(openTestDB(t))
	now := time.Now().UTC()
	mid := 80

	_, err := repo.GetGrade(ctx, "s1", "c1")
	assert.Equal(t, grade.ErrNotFound, err)

	first, err := repo.SaveGrade(ctx, grade.Record{ID: "g1", StudentID: "s1", CourseID: "c1", CreatedAt: now})
	require.NoError(t, err)

	rec := grade.Record{ID: "g2", StudentID: "s1", CourseID: "c1", Components: grade.Components{Midterm: &mid}}
	rec.FinalGrade = grade.FinalGrade(rec.Components)
	saved, err := repo.SaveGrade(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, first.ID, saved.ID)

	got, err := repo.GetGrade(ctx, "s1", "c1")
	require.NoError(t, err)
	if assert.NotNil(t, got.FinalGrade) {
		assert.Equal(t, 24, *got.FinalGrade)
	}

	records, err := repo.QueryGrades(ctx, grade.QueryFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(openTestDB(t))
	now := time.Now().UTC()

	rec := payment.Record{
		ID:           "p1",
		StudentID:    "s1",
		Term:         1,
		AcademicYear: "2024-2025",
		TotalAmount:  core.MoneyFromCents(150000),
		CreatedAt:    now,
	}
	require.NoError(t, payment.ApplyPayment(&rec, 0, now))
	_, err := repo.CreatePayment(ctx, rec)
	require.NoError(t, err)

	dup := rec
	dup.ID = "p2"
	_, err = repo.CreatePayment(ctx, dup)
	assert.Equal(t, payment.ErrAlreadyExists, err)

	dup.Term = 2
	_, err = repo.CreatePayment(ctx, dup)
	assert.NoError(t, err)

	require.NoError(t, payment.ApplyPayment(&rec, core.MoneyFromCents(50000), now))
	rec.Remarks = "first installment"
	rec.Term = 9 // not written by UpdatePayment
	updated, err := repo.UpdatePayment(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Term)
	assert.Equal(t, payment.StatusPartial, updated.Status)
	assert.Equal(t, core.MoneyFromCents(100000), updated.Balance)
	assert.Equal(t, "first installment", updated.Remarks)

	_, err = repo.UpdatePayment(ctx, payment.Record{ID: "missing"})
	assert.Equal(t, payment.ErrNotFound, err)

	records, err := repo.QueryPayments(ctx, payment.QueryFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAnnouncementRepository_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewAnnouncementRepository(openTestDB(t))
	now := time.Now().UTC()

	for i, id := range []string{"old", "new"} {
		_, err := repo.CreateAnnouncement(ctx, announcement.Announcement{
			ID:        id,
			Title:     id,
			Audience:  "all",
			IsActive:  true,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	rows, err := repo.QueryAnnouncements(ctx, announcement.QueryFilter{ActiveOnly: true})
	require.NoError(t, err)
	if assert.Len(t, rows, 2) {
		assert.Equal(t, "new", rows[0].ID)
	}

	rows[0].IsActive = false
	_, err = repo.UpdateAnnouncement(ctx, rows[0])
	require.NoError(t, err)
	rows, err = repo.QueryAnnouncements(ctx, announcement.QueryFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
