// Command pesapal is a thin CLI over the client, useful for exercising
// sandbox credentials: register an IPN, submit a test order, query a
// transaction, and print refund/cancellation guidance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/sokohub/pesapal-go/config"
	"github.com/sokohub/pesapal-go/pesapal"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	client, err := pesapal.NewClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *pesapal.Client, command string, args []string) error {
	switch command {
	case "register-ipn":
		fs := flag.NewFlagSet("register-ipn", flag.ExitOnError)
		ipnURL := fs.String("url", "", "callback URL to register")
		ipnType := fs.String("type", "POST", "notification type (GET or POST)")
		fs.Parse(args)

		resp, err := client.RegisterIPN(ctx, pesapal.IPNRequest{
			URL:              *ipnURL,
			NotificationType: pesapal.NotificationType(*ipnType),
		})
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "list-ipns":
		resp, err := client.ListIPNs(ctx)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "submit-order":
		fs := flag.NewFlagSet("submit-order", flag.ExitOnError)
		id := fs.String("id", "", "merchant order id (generated when empty)")
		currency := fs.String("currency", "KES", "ISO currency code")
		amount := fs.Float64("amount", 0, "order amount")
		description := fs.String("description", "", "order description")
		callback := fs.String("callback", "", "callback URL")
		notificationID := fs.String("ipn-id", "", "registered IPN id")
		email := fs.String("email", "", "customer email")
		phone := fs.String("phone", "", "customer phone number")
		firstName := fs.String("first-name", "", "customer first name")
		lastName := fs.String("last-name", "", "customer last name")
		fs.Parse(args)

		if *id == "" {
			*id = uuid.NewString()
		}
		resp, err := client.SubmitOrder(ctx, pesapal.Order{
			ID:             *id,
			Currency:       *currency,
			Amount:         *amount,
			Description:    *description,
			CallbackURL:    *callback,
			NotificationID: *notificationID,
			BillingAddress: pesapal.BillingAddress{
				EmailAddress: *email,
				PhoneNumber:  *phone,
				FirstName:    *firstName,
				LastName:     *lastName,
			},
		})
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		trackingID := fs.String("tracking-id", "", "order tracking id")
		fs.Parse(args)

		resp, err := client.GetTransactionStatus(ctx, *trackingID)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "refund":
		fs := flag.NewFlagSet("refund", flag.ExitOnError)
		trackingID := fs.String("tracking-id", "", "order tracking id")
		amount := fs.Float64("amount", 0, "refund amount (0 for a full refund)")
		reason := fs.String("reason", "customer requested refund", "refund reason")
		fs.Parse(args)

		opts := pesapal.RefundOptions{Reason: *reason}
		if *amount != 0 {
			opts.Amount = amount
		}
		guidance, err := client.RefundTransaction(ctx, *trackingID, opts)
		if err != nil {
			return err
		}
		printGuidance(guidance)
		return nil

	case "cancel":
		fs := flag.NewFlagSet("cancel", flag.ExitOnError)
		trackingID := fs.String("tracking-id", "", "order tracking id")
		reason := fs.String("reason", "customer cancellation", "cancellation reason")
		fs.Parse(args)

		guidance, err := client.CancelOrder(ctx, *trackingID, *reason)
		if err != nil {
			return err
		}
		printGuidance(guidance)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printGuidance(g *pesapal.Guidance) {
	fmt.Printf("action:   %s\n", g.Action)
	fmt.Printf("tracking: %s\n", g.TrackingID)
	fmt.Printf("status:   %s\n", g.CurrentStatus)
	fmt.Printf("eligible: %t\n", g.Eligible)
	if g.Reason != "" {
		fmt.Printf("reason:   %s\n", g.Reason)
	}
	if g.Action == pesapal.ActionRefund && g.Eligible {
		fmt.Printf("amount:   %.2f of %.2f (%s)\n", g.RefundAmount, g.TransactionAmount, g.RequestType)
	}
	if len(g.Instructions) > 0 {
		fmt.Println("next steps:")
		for _, step := range g.Instructions {
			fmt.Printf("  - %s\n", step)
		}
		fmt.Printf("support:  %s / %s\n", g.Support.Email, g.Support.Phone)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: pesapal <command> [flags]

commands:
  register-ipn   register a notification callback URL
  list-ipns      list registered IPNs
  submit-order   submit an order for payment
  status         fetch a transaction status
  refund         check refund eligibility and print guidance
  cancel         check cancellation eligibility and print guidance

configuration is read from PESAPAL_* environment variables (.env honored):
PESAPAL_CONSUMER_KEY, PESAPAL_CONSUMER_SECRET, PESAPAL_BASE_URL,
PESAPAL_TIMEOUT, PESAPAL_MAX_RETRIES, PESAPAL_RETRY_BASE_DELAY`)
}
