package main

import "time"

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// CreateFlags Flag structs to decouple cobra from logic for testing.
type CreateFlags struct {
	Recipient   string
	Origin      string
	Destination string
	Fare        string
	Note        string
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type StatusFlags struct {
	RequestID string
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type CancelFlags struct {
	RequestID string
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type TokenFlags struct {
	Secret  string
	Subject string
	Role    string
	TTL     time.Duration
}

type ServeFlags struct {
	ConfigPath string
}
