package main

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(email, "email"),
		vala.StringNotEmpty(pwd, "password"),
	).Check()
	if err != nil {
		return err
	}

	acc, err := cli.accSvc.SetPassword(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("password of %s updated\n", acc.Email)
	return nil
}
