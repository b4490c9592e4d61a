package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rosterly/rosterly/pkg/notifications"
)

func newNotificationsCommand() *Command {
	cmd := &Command{
		Name:        "notifications",
		Description: "List notifications or watch the unread count",
		Flags:       flag.NewFlagSet("notifications", flag.ExitOnError),
		Run:         runNotifications,
	}

	cmd.Flags.Bool("watch", false, "Keep polling the unread count until interrupted")
	cmd.Flags.String("schedule", "", "Cron schedule for -watch (default every minute)")
	cmd.Flags.Bool("read-all", false, "Mark every notification read")

	return cmd
}

func runNotifications(args []string) error {
	cmd := newNotificationsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	watch := cmd.Flags.Lookup("watch").Value.String() == "true"
	schedule := cmd.Flags.Lookup("schedule").Value.String()
	readAll := cmd.Flags.Lookup("read-all").Value.String() == "true"

	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if _, err := app.requireIdentity(ctx); err != nil {
		return err
	}

	if readAll {
		if err := app.notifications.MarkAllRead(ctx); err != nil {
			return err
		}
		fmt.Println("All notifications marked read")
		return nil
	}

	if watch {
		poller := notifications.NewPoller(app.notifications, &notifications.PollerConfig{
			Schedule: schedule,
			OnChange: func(count int) {
				fmt.Printf("unread: %d\n", count)
			},
		})
		if err := poller.Start(); err != nil {
			return err
		}
		defer poller.Stop()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		return nil
	}

	items, err := app.notifications.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No notifications")
		return nil
	}
	for _, n := range items {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Printf("%s %s  [%s] %s\n", marker, n.CreatedAt.Format("2006-01-02 15:04"), n.Kind, n.Message)
	}
	return nil
}
