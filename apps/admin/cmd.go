package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db          *sqlx.DB
	residentSvc *residency.Service
	boardSvc    *board.Service
	seedTasks   []string
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  setrole -email EMAIL -role " + strings.Join(residency.Roles, "|") + " - change a resident's role")
	fmt.Println("  seed - create the default board tasks that are missing")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The resident's email.")
	setRoleRole := setRoleCmd.String("role", residency.RoleModerator, "The new role.")

	switch args[1] {
	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setRoleEmail == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)
	case "seed":
		return cli.seed()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) setRole(email, role string) error {
	prof, err := cli.residentSvc.SetRole(context.Background(), email, role)
	if err != nil {
		return err
	}
	fmt.Printf("%s (apartment %d) is now %s\n", prof.Email, prof.Apt, prof.Role)
	return nil
}

func (cli *commandLine) seed() error {
	n, err := cli.boardSvc.Seed(context.Background(), cli.seedTasks)
	if err != nil {
		return err
	}
	fmt.Printf("%d task(s) created\n", n)
	return nil
}
