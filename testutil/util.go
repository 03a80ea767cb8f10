package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
)

// NewValidator returns a validator with every custom tag & translation registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidatorAndTranslator()
	return validate
}

// NewValidatorAndTranslator also returns the translator holding the validation messages.
func NewValidatorAndTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate, translator
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	role account.Role,
	email, firstName, lastName, pwd string,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	id := uuid.New().String()
	acc := account.Account{
		ID:              id,
		SchoolID:        string(role) + "-" + id,
		Email:           email,
		FirstName:       firstName,
		LastName:        lastName,
		Role:            role,
		IsActive:        isActive,
		EnrolledCourses: []string{},
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// FreezeTime makes account.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	account.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { account.NowFunc = time.Now })
}
