package main

import (
	"context"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.SetUserPassword(ctx, usr); err != nil {
		return err
	}
	return nil
}
