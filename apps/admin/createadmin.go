package main

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/account"
)

// Demo admin created by seed.
const (
	seedAdminEmail    = "admin@icc.edu"
	seedAdminPassword = "admin123456"
)

func (cli *commandLine) createAdmin(email, firstName, lastName, pwd string) error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(email, "email"),
		vala.StringNotEmpty(firstName, "first"),
		vala.StringNotEmpty(lastName, "last"),
		vala.StringNotEmpty(pwd, "password"),
	).Check()
	if err != nil {
		return err
	}

	acc, err := cli.accSvc.CreateAdmin(context.Background(), account.NewAccount{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("admin %s created (%s)\n", acc.Email, acc.SchoolID)
	return nil
}

// seed creates the demo admin; an existing account with the same email is left untouched.
func (cli *commandLine) seed() error {
	_, err := cli.accSvc.GetByEmail(context.Background(), seedAdminEmail)
	switch {
	case err == nil:
		fmt.Printf("%s already exists\n", seedAdminEmail)
		return nil
	case errors.Cause(err) != account.ErrNotFound:
		return err
	}
	return cli.createAdmin(seedAdminEmail, "System", "Administrator", seedAdminPassword)
}
