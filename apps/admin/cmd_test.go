package main

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/services/ratelimit"
	"github.com/gymhub/contentdesk/storage/database/sqlx"
	"github.com/gymhub/contentdesk/tests"
)

var (
	gymRepo gym.Repository
	fmtRepo format.Repository
)

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	gymRepo = sqlxrepos.NewGymRepository(db)
	fmtRepo = sqlxrepos.NewFormatRepository(db)

	// start CLI
	return &commandLine{
		db:         db,
		gymSvc:     gym.NewService(gymRepo, ratelimit.NewMemoryLimiter(5, conf.Redis.LoginWindow), conf),
		fmtSvc:     format.NewService(fmtRepo),
		validate:   validate,
		translator: translator,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPIN(pin string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pin), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "gym_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addGym(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no name", args: []string{"addgym"}, extra: "1234", wantErr: errHelp},
		{name: "name but no PIN", args: []string{"addgym", "-name", "Downtown"}, wantErr: errHelp},
		{name: "bad PIN", args: []string{"addgym", "-name", "Downtown"}, extra: "12ab", wantErrStr: "pin: PIN must be 4 to 8 digits"},
		{name: "bad email", args: []string{"addgym", "-name", "Downtown", "-email", "nope"}, extra: "1234", wantErrStr: "email: email must be a valid email address"},
		{name: "member", args: []string{"addgym", "-name", "Downtown", "-location", "Kinshasa", "-email", "Downtown@Gyms.test"}, extra: "1234"},
		{name: "admin", args: []string{"addgym", "-name", "HQ", "-admin"}, extra: "9999"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pin, _ := tt.extra.(string)
		mockPIN(pin)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}

	gyms, err := gymRepo.QueryGyms(ctx, cliScope, nil)
	require.NoError(t, err)
	require.Len(t, gyms, 2)
	byName := map[string]gym.Gym{gyms[0].Name: gyms[0], gyms[1].Name: gyms[1]}
	assert.Equal(t, gym.RoleMember, byName["Downtown"].Role)
	assert.Equal(t, "Kinshasa", byName["Downtown"].Location)
	assert.Equal(t, "downtown@gyms.test", byName["Downtown"].Email)
	downtown := byName["Downtown"]
	assert.NoError(t, downtown.CheckPIN("1234"))
	assert.True(t, byName["HQ"].IsAdmin())

	// PINs stay unique
	mockPIN("1234")
	err = cli.run([]string{"admin", "addgym", "-name", "Copycat"})
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func Test_commandLine_resetPINAndDeactivate(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	g := testutil.CreateGym(t, gymRepo, "Downtown", "1234", gym.RoleMember, true)

	tests := []cliTest{
		{name: "no gym", args: []string{"resetpin"}, extra: "4321", wantErr: errHelp},
		{name: "no PIN", args: []string{"resetpin", "-gym", g.ID}, wantErr: errHelp},
		{name: "unknown gym", args: []string{"resetpin", "-gym", "nope"}, extra: "4321", wantErr: gym.ErrNotFound},
		{name: "reset", args: []string{"resetpin", "-gym", g.ID}, extra: "4321"},
		{name: "deactivate without gym", args: []string{"deactivate"}, wantErr: errHelp},
		{name: "deactivate unknown gym", args: []string{"deactivate", "-gym", "nope"}, wantErr: gym.ErrNotFound},
		{name: "deactivate", args: []string{"deactivate", "-gym", g.ID}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pin, _ := tt.extra.(string)
		mockPIN(pin)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			assert.NoError(t, err)
		})
	}

	refreshed, err := gymRepo.GetGym(ctx, cliScope, g.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPIN("4321"))
	assert.False(t, refreshed.IsActive)
}

func Test_commandLine_seedFormats(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seedformats"}))
	formats, err := fmtRepo.QueryFormats(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, formats, len(format.DefaultCatalog))

	// seeding twice adds nothing
	require.NoError(t, cli.run([]string{"admin", "seedformats"}))
	formats, err = fmtRepo.QueryFormats(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, formats, len(format.DefaultCatalog))
}
