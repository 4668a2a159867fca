package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/route"
	"ridebook/internal/service"
	"ridebook/internal/types"
)

var (
	bookAPI     string
	bookToken   string
	bookUserID  int64
	bookRole    string
	bookFrom    string
	bookTo      string
	bookTier    int
	bookPickup  string
	bookDropoff string
	bookRetries uint64
)

// bookCmd plays the booking form: it clicks the two points on a local route
// session, waits for the lookups, and submits the result to a remote API.
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book a ride against a ridebook API",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := types.ParseCoordinate(bookFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := types.ParseCoordinate(bookTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		geo, err := geoProvider()
		if err != nil {
			return err
		}
		engine, err := pricing.NewEngine(cfg.Pricing.Model)
		if err != nil {
			return err
		}

		session := route.NewSession(geo, route.WithLookupTimeout(cfg.Route.LookupTimeout), route.WithLogger(logger))
		defer session.Close()
		session.Click(from)
		session.Click(to)

		token := bookToken
		if token == "" {
			token = os.Getenv("RIDEBOOK_TOKEN")
		}
		client := booking.NewClient(bookAPI,
			booking.WithToken(func(context.Context) (string, error) { return token, nil }),
			booking.WithRetries(bookRetries),
		)
		checkout := service.NewCheckout(
			pricing.NewService(catalog(), engine),
			booking.NewAssembler(engine, cfg.Location),
			client,
			cfg.Route.LookupTimeout,
			logger,
		)

		var user *booking.User
		if bookUserID > 0 {
			user = &booking.User{ID: bookUserID, Role: booking.ParseRole(bookRole)}
		}
		tier := bookTier
		b, err := checkout.Run(cmd.Context(), session, service.CheckoutRequest{
			TierID:    &tier,
			User:      user,
			PickupAt:  bookPickup,
			DropoffAt: bookDropoff,
		})
		if err != nil {
			var verr *booking.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("%s: %s", verr.Kind, verr.Message)
			}
			if booking.IsRetryable(err) {
				return fmt.Errorf("%w (retryable)", err)
			}
			return err
		}
		return printJSON(cmd, b)
	},
}

func init() {
	f := bookCmd.Flags()
	f.StringVar(&bookAPI, "api", "http://localhost:8080", "ridebook API base URL")
	f.StringVar(&bookToken, "token", "", "Bearer token (default $RIDEBOOK_TOKEN)")
	f.Int64Var(&bookUserID, "user-id", 0, "Booking user id")
	f.StringVar(&bookRole, "role", "CUSTOMER", "Booking role")
	f.StringVar(&bookFrom, "from", "", "Pickup as lat,lng")
	f.StringVar(&bookTo, "to", "", "Destination as lat,lng")
	f.IntVar(&bookTier, "tier", 1, "Vehicle tier id")
	f.StringVar(&bookPickup, "pickup", "", "Pickup time, RFC 3339 or YYYY-MM-DDTHH:MM in RIDEBOOK_TIMEZONE")
	f.StringVar(&bookDropoff, "dropoff", "", "Drop-off time, same formats as --pickup")
	f.Uint64Var(&bookRetries, "retries", 2, "Retries for retryable submission failures")
	for _, name := range []string{"from", "to", "pickup", "dropoff"} {
		_ = bookCmd.MarkFlagRequired(name)
	}
}
