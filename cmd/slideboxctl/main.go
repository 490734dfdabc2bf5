// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/slidebox/internal/api/control"
	"github.com/osa030/slidebox/internal/app/notification"
)

var (
	app     = kingpin.New("slideboxctl", "slidebox control client")
	server  = app.Flag("server", "Control API address").Default("http://localhost:6681").String()
	token   = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("5s").Duration()

	// status command
	statusCmd = app.Command("status", "Show player status")

	// button commands
	toggleCmd   = app.Command("toggle", "Press play/pause")
	nextCmd     = app.Command("next", "Press next")
	previousCmd = app.Command("previous", "Press previous").Alias("prev")

	// virtual reader commands
	placeCmd  = app.Command("place", "Place a tag on the virtual reader")
	placeTag  = placeCmd.Arg("tag-id", "Tag ID").Required().String()
	removeCmd = app.Command("remove", "Remove the tag from the virtual reader")

	// watch command
	watchCmd = app.Command("watch", "Follow display updates")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := control.NewClient(*server, *token, nil)

	if command == watchCmd.FullCommand() {
		watch(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case toggleCmd.FullCommand():
		err = press(ctx, client, "toggle")
	case nextCmd.FullCommand():
		err = press(ctx, client, "next")
	case previousCmd.FullCommand():
		err = press(ctx, client, "previous")
	case placeCmd.FullCommand():
		err = client.Place(ctx, *placeTag)
		if err == nil {
			fmt.Printf("Placed tag %s\n", *placeTag)
		}
	case removeCmd.FullCommand():
		err = client.Remove(ctx)
		if err == nil {
			fmt.Println("Removed tag")
		}
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client *control.Client) error {
	resp, err := client.Status(ctx)
	if err != nil {
		return err
	}

	p := resp.Player
	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("State: %s\n", p.State)
	fmt.Printf("Library: loaded=%v records=%d\n", resp.Library.Loaded, resp.Library.Records)
	fmt.Printf("Tag Present: %v\n", p.Status.TagPresent)
	if p.PresentTag != "" {
		fmt.Printf("Present Tag: %s\n", p.PresentTag)
	}
	if p.PendingTag != "" {
		fmt.Printf("Starting Tag: %s\n", p.PendingTag)
	}

	if p.Status.CurrentTagID != "" {
		fmt.Println("\nSession:")
		fmt.Printf("  Tag ID: %s\n", p.Status.CurrentTagID)
		fmt.Printf("  Track: %s\n", p.Status.TrackName)
		fmt.Printf("  Artist: %s\n", p.Status.Album)
		fmt.Printf("  Playing: %v\n", p.Status.IsPlaying)
	}

	if resp.Screen != nil {
		fmt.Printf("\nDisplay: %s\n", formatScreen(*resp.Screen))
	}
	return nil
}

func press(ctx context.Context, client *control.Client, button string) error {
	if err := client.Press(ctx, button); err != nil {
		return err
	}
	fmt.Printf("Pressed %s\n", button)
	return nil
}

func watch(client *control.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.Watch(ctx, func(s notification.Screen) {
		fmt.Println(formatScreen(s))
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func formatScreen(s notification.Screen) string {
	return fmt.Sprintf("[%s] %-7s %s", s.At.Local().Format(time.TimeOnly), s.Kind, strings.Join(s.Lines, " | "))
}
