// Command studioctl runs studio admin operations against a running API.
//
//	studioctl [-api URL] [-token JWT] <command> [flags]
//
// Commands: appointments, sync, calendar-health, dead, requeue, summary,
// wait-payment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	"github.com/wolfman30/inkstudio-platform/internal/payments"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
	"github.com/wolfman30/inkstudio-platform/pkg/studioclient"
)

const usage = `usage: studioctl [-api URL] [-token JWT] <command> [flags]

commands:
  appointments [-q text] [-status S]   list appointments
  sync [-full] [-batch N]             pull bookings from Cal.com
  calendar-health                     check the calendar integration
  dead [-limit N]                     list dead-lettered notifications
  requeue <id>                        retry a dead notification
  summary                             dashboard figures
  wait-payment <payment_intent_id>    poll until the payment settles
`

var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "studioctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("studioctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := global.String("api", envOr("STUDIO_API_URL", "http://localhost:8080"), "studio API base URL")
	token := global.String("token", os.Getenv("STUDIO_ADMIN_TOKEN"), "admin bearer token")
	verbose := global.Bool("v", false, "log requests")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errUsage
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	client := studioclient.New(*apiURL,
		studioclient.WithToken(*token),
		studioclient.WithLogger(logging.NewWithWriter(stderr, level)),
	)
	cmd := &command{client: client, out: stdout, errOut: stderr}
	return cmd.dispatch(ctx, rest[0], rest[1:])
}

type command struct {
	client *studioclient.Client
	out    io.Writer
	errOut io.Writer
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "appointments":
		return c.appointments(ctx, args)
	case "sync":
		return c.sync(ctx, args)
	case "calendar-health":
		health, err := c.client.CalendarHealth(ctx)
		if err != nil {
			return err
		}
		return c.print(health)
	case "dead":
		return c.dead(ctx, args)
	case "requeue":
		if len(args) != 1 {
			fmt.Fprint(c.errOut, usage)
			return errUsage
		}
		if err := c.client.RequeueNotification(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "requeued %s\n", args[0])
		return nil
	case "summary":
		summary, err := c.client.Summary(ctx)
		if err != nil {
			return err
		}
		return c.print(summary)
	case "wait-payment":
		return c.waitPayment(ctx, args)
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", name, usage)
		return errUsage
	}
}

func (c *command) appointments(ctx context.Context, args []string) error {
	fs := c.flags("appointments")
	query := fs.String("q", "", "search text")
	status := fs.String("status", "", "status filter")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	list, err := c.client.ListAppointments(ctx, studioclient.ListFilter{
		Query:  *query,
		Status: strings.ToUpper(strings.TrimSpace(*status)),
	})
	if err != nil {
		return err
	}
	return c.print(list)
}

func (c *command) sync(ctx context.Context, args []string) error {
	fs := c.flags("sync")
	full := fs.Bool("full", false, "ignore the last-sync cursor")
	batch := fs.Int("batch", 0, "records per page")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	result, err := c.client.SyncBookings(ctx, calsync.SyncOptions{
		ForceFullSync: *full,
		BatchSize:     *batch,
		SyncType:      calsync.SyncAll,
	})
	if err != nil {
		return err
	}
	return c.print(result)
}

func (c *command) dead(ctx context.Context, args []string) error {
	fs := c.flags("dead")
	limit := fs.Int("limit", 50, "max entries")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	entries, err := c.client.DeadNotifications(ctx, *limit)
	if err != nil {
		return err
	}
	return c.print(entries)
}

func (c *command) waitPayment(ctx context.Context, args []string) error {
	fs := c.flags("wait-payment")
	timeout := fs.Duration("timeout", 10*time.Minute, "give up after")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprint(c.errOut, usage)
		return errUsage
	}
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	intent, err := c.client.WaitForPayment(ctx, fs.Arg(0), func(in *payments.Intent) {
		fmt.Fprintf(c.errOut, "%s: %s\n", in.ID, in.Status)
	})
	if err != nil {
		return err
	}
	return c.print(intent)
}

func (c *command) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *command) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
