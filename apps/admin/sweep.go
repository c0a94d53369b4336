package main

import (
	"context"
	"fmt"
	"time"
)

// sweepDue runs one credential-issuance cycle by hand, ahead of the
// in-process scheduler's next tick.
func (cli *commandLine) sweepDue() error {
	issued, err := cli.paperSvc.SweepDueCredentials(context.Background(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("%d credential(s) issued\n", issued)
	return nil
}

func (cli *commandLine) sweepExpired() error {
	relocked, err := cli.paperSvc.SweepExpiredUnlocks(context.Background(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("%d paper(s) re-locked\n", relocked)
	return nil
}
