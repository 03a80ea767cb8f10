package account

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultPasswordSuffix = "123456"

	studentIDPrefix = "STU-"
	teacherIDPrefix = "TCH-"
	adminIDPrefix   = "ADM-"
)

var NowFunc = time.Now // mockable

// DefaultPassword builds the initial credential: first initial + last name + "123456", lower-cased.
// It is predictable on purpose; accounts carrying it must change it on first login.
func DefaultPassword(firstName, lastName string) string {
	var initial string
	if r, size := utf8.DecodeRuneInString(firstName); size > 0 && r != utf8.RuneError {
		initial = string(r)
	}
	return strings.ToLower(initial) + strings.ToLower(lastName) + defaultPasswordSuffix
}

// StudentID returns "STU-" + YYYYMMDDHHMMSS of t.
// Two students provisioned within the same second collide; storage rejects the second one.
func StudentID(t time.Time) string {
	return studentIDPrefix + t.Format("20060102150405")
}

// TeacherID returns "TCH-" + the unix timestamp of t in milliseconds.
func TeacherID(t time.Time) string {
	return teacherIDPrefix + strconv.FormatInt(t.UnixNano()/int64(time.Millisecond), 10)
}

func AdminID(t time.Time) string {
	return adminIDPrefix + strconv.FormatInt(t.UnixNano()/int64(time.Millisecond), 10)
}

// SchoolID returns the role specific identifier of an account created at t.
func SchoolID(role Role, t time.Time) string {
	switch role {
	case RoleStudent:
		return StudentID(t)
	case RoleTeacher:
		return TeacherID(t)
	default:
		return AdminID(t)
	}
}
