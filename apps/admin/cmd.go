package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const cliActor = "admin-cli"

type commandLine struct {
	db         *sql.DB
	out        io.Writer
	usrSvc     user.ServiceInterface
	settingSvc setting.ServiceInterface
	warningSvc warning.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  seedsettings - write the default system settings if none are stored")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-admin] - add or update an active user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  scan [-class CLASS_ID] [-gpa THRESHOLD] [-debt THRESHOLD] - run an academic warning scan")
}

func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := audit.WithRequestInfo(context.Background(), audit.RequestInfo{Actor: cliActor, Endpoint: "cli " + args[1]})

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user every role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	scanCmd := flag.NewFlagSet("scan", flag.ContinueOnError)
	scanClass := scanCmd.String("class", "", "Only scan students of this class.")
	scanGPA := scanCmd.Float64("gpa", -1, "GPA threshold seed (default: system setting).")
	scanDebt := scanCmd.Float64("debt", -1, "Debt credits threshold seed (default: system setting).")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, scanCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seedsettings":
		return cli.settingSvc.Seed(ctx)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		usr, err := cli.usrSvc.AddOrUpdate(ctx, *addUserUname, *addUserEmail, pwd, *addUserAdmin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %q saved\n", usr.Username)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		_, err = cli.usrSvc.ResetPassword(ctx, *resetPasswordUname, pwd)
		return err

	case "scan":
		if err := scanCmd.Parse(args[2:]); err != nil {
			return err
		}
		req := warning.ScanRequest{ClassID: *scanClass}
		if *scanGPA >= 0 {
			req.GPAThreshold = scanGPA
		}
		if *scanDebt >= 0 {
			req.DebtThreshold = scanDebt
		}
		res, err := cli.warningSvc.Scan(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%d students scanned, %d cases created\n", res.Students, res.CreatedCases)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
