package cli

import (
	"context"
	"flag"
	"fmt"
)

func newLogoutCommand() *Command {
	return &Command{
		Name:        "logout",
		Description: "Sign out and clear stored credentials",
		Flags:       flag.NewFlagSet("logout", flag.ExitOnError),
		Run:         runLogout,
	}
}

func runLogout(args []string) error {
	cmd := newLogoutCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	app.sessions.Logout(ctx)
	fmt.Println("Signed out")
	return nil
}
