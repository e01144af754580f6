// Command remindctl triggers the daily reminder pass over HTTP. It is meant
// to run from cron on reminder days, for example:
//
//	0 9 * * 5,6,0  remindctl -url https://savings.example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/carlmjohnson/requests"
)

func main() {
	url := flag.String("url", "http://localhost:8080", "base URL of the savings-challenge server")
	secret := flag.String("secret", os.Getenv("REMINDER_SECRET"), "trigger secret (defaults to REMINDER_SECRET envvar)")
	timeout := flag.Duration("timeout", time.Minute, "overall request timeout")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "remindctl: a trigger secret is required (-secret or REMINDER_SECRET)")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var report string
	err := requests.URL(*url).
		Path("/api/notifications/remind").
		Header("X-Reminder-Key", *secret).
		Post().
		ToString(&report).
		Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindctl: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(report)
}
