package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rideline/ridewatch/internal/server"
	"github.com/rideline/ridewatch/pkg/client"
)

type command struct{}

func (c command) apiClient(apiURL, token string, timeout time.Duration) (*client.Client, error) {
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080/api" // Default local daemon
	}
	cfg := client.DefaultConfig()
	cfg.BaseURL = apiURL
	cfg.Token = token
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cl := client.New(cfg)
	if !cl.IsReachable(context.Background()) {
		return nil, fmt.Errorf("daemon not reachable at %s - please start daemon first with 'ridewatch serve'", apiURL)
	}
	return cl, nil
}

// Create submits a ride to the daemon, which creates it upstream and starts a monitor.
func (c command) Create(f CreateFlags) error {
	cl, err := c.apiClient(f.APIUrl, f.APIToken, f.APITimeout)
	if err != nil {
		return err
	}
	id, err := cl.CreateRide(context.Background(), client.CreateRideRequest{
		Recipient:   f.Recipient,
		Origin:      f.Origin,
		Destination: f.Destination,
		Fare:        f.Fare,
		Note:        f.Note,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Ride created: request %s\n", id)
	return nil
}

// Status prints monitor status for one request, or all active monitors.
func (c command) Status(f StatusFlags) error {
	cl, err := c.apiClient(f.APIUrl, f.APIToken, f.APITimeout)
	if err != nil {
		return err
	}
	if f.RequestID != "" {
		st, err := cl.RideStatus(context.Background(), f.RequestID)
		if err != nil {
			return err
		}
		printJSON(st)
		return nil
	}
	sts, err := cl.AllRideStatuses(context.Background())
	if err != nil {
		return err
	}
	printJSON(sts)
	return nil
}

// Cancel aborts a ride upstream; the daemon stops its monitor on the next poll.
func (c command) Cancel(f CancelFlags) error {
	cl, err := c.apiClient(f.APIUrl, f.APIToken, f.APITimeout)
	if err != nil {
		return err
	}
	if err := cl.CancelRide(context.Background(), f.RequestID); err != nil {
		return err
	}
	fmt.Printf("Cancellation sent for request %s\n", f.RequestID)
	return nil
}

// Token mints a bearer token for the daemon's mutating endpoints.
func (c command) Token(f TokenFlags) error {
	if f.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	tok, err := server.GenerateToken(f.Secret, f.Subject, f.Role, f.TTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
