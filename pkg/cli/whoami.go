package cli

import (
	"context"
	"flag"
	"fmt"
)

func newWhoamiCommand() *Command {
	return &Command{
		Name:        "whoami",
		Description: "Show the current identity and memberships",
		Flags:       flag.NewFlagSet("whoami", flag.ExitOnError),
		Run:         runWhoami,
	}
}

func runWhoami(args []string) error {
	cmd := newWhoamiCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	identity, err := app.requireIdentity(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", identity.Name, identity.Email)
	if len(identity.Memberships) == 0 {
		fmt.Println("No organization memberships")
		return nil
	}
	fmt.Println("Memberships:")
	for _, m := range identity.Memberships {
		fmt.Printf("  %s  %s (%s)\n", m.OrgID, m.OrgName, m.Role)
	}
	return nil
}
