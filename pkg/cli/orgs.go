package cli

import (
	"context"
	"flag"
	"fmt"
)

func newOrgsCommand() *Command {
	cmd := &Command{
		Name:        "orgs",
		Description: "List your organizations or show one",
		Flags:       flag.NewFlagSet("orgs", flag.ExitOnError),
		Run:         runOrgs,
	}

	cmd.Flags.String("id", "", "Show a single organization by id")
	cmd.Flags.Bool("members", false, "List members instead of the summary (requires -id)")

	return cmd
}

func runOrgs(args []string) error {
	cmd := newOrgsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	orgID := cmd.Flags.Lookup("id").Value.String()
	listMembers := cmd.Flags.Lookup("members").Value.String() == "true"

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if _, err := app.requireIdentity(ctx); err != nil {
		return err
	}

	if orgID == "" {
		if listMembers {
			return fmt.Errorf("-members requires -id")
		}
		summaries, err := app.orgs.MyOrganizations(ctx)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No organizations")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %s (%d members)\n", s.ID, s.Name, s.MemberCount)
		}
		return nil
	}

	if listMembers {
		members, err := app.orgs.Members(ctx, orgID)
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Printf("%s  %s <%s>  %s\n", m.UserID, m.Name, m.Email, m.Role)
		}
		return nil
	}

	summary, err := app.orgs.Get(ctx, orgID)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", summary.ID, summary.Name)
	if summary.Description != "" {
		fmt.Println(summary.Description)
	}
	fmt.Printf("%d members\n", summary.MemberCount)
	return nil
}
