package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"agriconnect/internal/client"
	"agriconnect/pkg/logger"
)

var (
	serverFlag = cli.StringFlag{
		Name:    "server",
		Usage:   "base URL of the API",
		EnvVars: []string{"AGRI_SERVER"},
		Value:   "http://localhost:8080",
	}
	tokenFlag = cli.StringFlag{
		Name:    "token",
		Usage:   "bearer token issued by the token command or your identity provider",
		EnvVars: []string{"AGRI_TOKEN"},
	}
	intervalFlag = cli.DurationFlag{
		Name:    "interval",
		Usage:   "poll interval for watch commands",
		EnvVars: []string{"AGRI_POLL_INTERVAL"},
		Value:   client.DefaultPollInterval,
	}
)

func main() {
	logger.Configure(os.Getenv("ENVIRONMENT"))
	defer logger.Sync()

	app := &cli.App{
		Name:  "agrictl",
		Usage: "find sellers, manage match requests and chat from the terminal",
		Flags: []cli.Flag{&serverFlag, &tokenFlag, &intervalFlag},
		Commands: []*cli.Command{
			tokenCmd,
			searchCmd,
			requestCmd,
			requestsCmd,
			chatCmd,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func apiClient(c *cli.Context) *client.Client {
	return client.New(c.String(serverFlag.Name), 10*time.Second)
}

// loggedIn resolves --token into a session.
func loggedIn(c *cli.Context) (*client.Session, error) {
	session := client.NewSession(apiClient(c))
	if _, err := session.Login(c.Context, c.String(tokenFlag.Name)); err != nil {
		return nil, err
	}
	return session, nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
