package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/rosterly/rosterly/pkg/permissions"
)

func newCanCommand() *Command {
	cmd := &Command{
		Name:        "can",
		Description: "Check a permission in an organization",
		Flags:       flag.NewFlagSet("can", flag.ExitOnError),
		Run:         runCan,
	}

	cmd.Flags.Bool("all", false, "List all effective permissions instead")
	cmd.Flags.Bool("force", false, "Bypass the cache and reload from the backend")

	return cmd
}

func runCan(args []string) error {
	cmd := newCanCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	listAll := cmd.Flags.Lookup("all").Value.String() == "true"
	force := cmd.Flags.Lookup("force").Value.String() == "true"

	if cmd.Flags.NArg() < 1 {
		return fmt.Errorf("usage: rosterly can <org-id> [permission]")
	}
	orgID := cmd.Flags.Arg(0)

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if _, err := app.requireIdentity(ctx); err != nil {
		return err
	}

	if _, err := app.permissions.EnsureLoaded(ctx, orgID, force); err != nil {
		return fmt.Errorf("loading permissions for organization %s: %w", orgID, err)
	}

	scope := app.permissions.For(orgID)

	if listAll || cmd.Flags.NArg() == 1 {
		perms := scope.All()
		if len(perms) == 0 {
			fmt.Println("no permissions (not a member)")
			return nil
		}
		names := make([]string, 0, len(perms))
		for _, p := range perms {
			names = append(names, string(p))
		}
		fmt.Println(strings.Join(names, "\n"))
		return nil
	}

	perm := permissions.Permission(cmd.Flags.Arg(1))
	if scope.Has(perm) {
		fmt.Printf("yes: %s in organization %s\n", perm, orgID)
		return nil
	}
	fmt.Printf("no: %s in organization %s\n", perm, orgID)
	return nil
}
