package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")

	// the CLI acts on every gym
	cliScope = core.AdminScope("")
)

type commandLine struct {
	db         *sqlx.DB
	gymSvc     gym.Service
	fmtSvc     format.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                              - run a goose migration command (up, down, status, ...)")
	fmt.Println("  addgym -name NAME [-location L] [-email E] [-admin] - provision a gym; the PIN is prompted next")
	fmt.Println("  resetpin -gym ID                                    - set a new PIN; the PIN is prompted next")
	fmt.Println("  deactivate -gym ID                                  - block a gym from logging in")
	fmt.Println("  seedformats                                         - add the missing default content formats")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addGymCmd := flag.NewFlagSet("addgym", flag.ContinueOnError)
	addGymName := addGymCmd.String("name", "", "The gym's name.")
	addGymLocation := addGymCmd.String("location", "", "The gym's location.")
	addGymEmail := addGymCmd.String("email", "", "The address notifications are sent to.")
	addGymAdmin := addGymCmd.Bool("admin", false, "Whether the gym runs the admin portal.")

	resetPINCmd := flag.NewFlagSet("resetpin", flag.ContinueOnError)
	resetPINGym := resetPINCmd.String("gym", "", "The gym's ID. The PIN will be prompted next.")

	deactivateCmd := flag.NewFlagSet("deactivate", flag.ContinueOnError)
	deactivateGym := deactivateCmd.String("gym", "", "The gym's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addgym":
		if err := addGymCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addGymName == "" {
			addGymCmd.Usage()
			return errHelp
		}
		pin, err := promptPIN()
		if err != nil {
			return err
		}
		if pin == "" {
			addGymCmd.Usage()
			return errHelp
		}
		return cli.addGym(*addGymName, *addGymLocation, *addGymEmail, pin, *addGymAdmin)

	case "resetpin":
		if err := resetPINCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPINGym == "" {
			resetPINCmd.Usage()
			return errHelp
		}
		pin, err := promptPIN()
		if err != nil {
			return err
		}
		if pin == "" {
			resetPINCmd.Usage()
			return errHelp
		}
		return cli.resetPIN(*resetPINGym, pin)

	case "deactivate":
		if err := deactivateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deactivateGym == "" {
			deactivateCmd.Usage()
			return errHelp
		}
		return cli.deactivate(*deactivateGym)

	case "seedformats":
		return cli.seedFormats()

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPIN() (string, error) {
	fmt.Print("Enter PIN:")
	pin, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return core.CleanString(string(pin)), nil
}
