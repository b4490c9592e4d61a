package cli

import (
	"context"
	"flag"
	"fmt"
)

func newNavCommand() *Command {
	cmd := &Command{
		Name:        "nav",
		Description: "Evaluate the navigation guard for a path",
		Flags:       flag.NewFlagSet("nav", flag.ExitOnError),
		Run:         runNav,
	}

	return cmd
}

func runNav(args []string) error {
	cmd := newNavCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	if cmd.Flags.NArg() != 1 {
		return fmt.Errorf("usage: rosterly nav <path>")
	}
	path := cmd.Flags.Arg(0)

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	decision := app.guard.Evaluate(ctx, path)
	if decision.Allowed() {
		name := "(unregistered)"
		if decision.Route != nil {
			name = decision.Route.Name
		}
		fmt.Printf("allowed: %s -> %s\n", path, name)
		return nil
	}

	fmt.Printf("redirected: %s -> %s (%s)\n", path, decision.Redirect.To, decision.Redirect.Reason)
	if len(decision.Redirect.Query) > 0 {
		fmt.Printf("  query: %s\n", decision.Redirect.Query.Encode())
	}
	return nil
}
