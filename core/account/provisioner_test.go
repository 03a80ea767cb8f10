package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPassword(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Juan", "DelaCruz", "jdelacruz123456"},
		{"maria", "santos", "msantos123456"},
		{"Élodie", "Durand", "édurand123456"},
		{"", "Solo", "solo123456"},
	}
	for _, tt := range tests {
		t.Run(tt.first+" "+tt.last, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultPassword(tt.first, tt.last))
		})
	}
}

func TestSchoolID(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 2, 123e6, time.UTC)

	assert.Equal(t, "STU-20240307090502", StudentID(at))
	assert.Equal(t, "STU-20240307090502", SchoolID(RoleStudent, at))
	assert.Equal(t, "TCH-1709802302123", TeacherID(at))
	assert.Equal(t, "TCH-1709802302123", SchoolID(RoleTeacher, at))
	assert.Equal(t, "ADM-1709802302123", SchoolID(RoleAdmin, at))

	// same second, same student ID
	assert.Equal(t, StudentID(at), StudentID(at.Add(500*time.Millisecond)))
}
