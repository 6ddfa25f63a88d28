package main

import (
	"context"
	"fmt"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/gym"
)

func (cli *commandLine) addGym(name, location, email, pin string, isAdmin bool) error {
	ng := gym.NewGym{
		Name:     name,
		Location: location,
		Email:    email,
		PIN:      pin,
		Role:     gym.RoleMember,
	}
	if isAdmin {
		ng.Role = gym.RoleAdmin
	}
	if err := ng.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	g, err := cli.gymSvc.Create(context.Background(), cliScope, ng)
	if err != nil {
		return err
	}
	fmt.Printf("gym %q created: %s\n", g.Name, g.ID)
	return nil
}

func (cli *commandLine) resetPIN(id, pin string) error {
	g, err := cli.gymSvc.ResetPIN(context.Background(), cliScope, id, pin)
	if err != nil {
		return err
	}
	fmt.Printf("PIN of %q reset\n", g.Name)
	return nil
}

func (cli *commandLine) deactivate(id string) error {
	g, err := cli.gymSvc.SetActive(context.Background(), cliScope, id, false)
	if err != nil {
		return err
	}
	fmt.Printf("gym %q deactivated\n", g.Name)
	return nil
}

func (cli *commandLine) seedFormats() error {
	n, err := cli.fmtSvc.Seed(context.Background(), cliScope)
	if err != nil {
		return err
	}
	fmt.Printf("%d content formats created\n", n)
	return nil
}
