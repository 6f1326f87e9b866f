package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"agriconnect/internal/client"
	"agriconnect/internal/domain/entity"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
)

var peerFlag = cli.StringFlag{Name: "peer", Usage: "the other participant's id", Required: true}

var chatCmd = &cli.Command{
	Name:  "chat",
	Usage: "talk to a counterpart over an accepted request",
	Subcommands: []*cli.Command{
		{
			Name:      "send",
			Usage:     "append a message to the room shared with --peer",
			ArgsUsage: "<text>",
			Flags:     []cli.Flag{&peerFlag},
			Action: func(c *cli.Context) error {
				text := strings.Join(c.Args().Slice(), " ")
				if strings.TrimSpace(text) == "" {
					return errors.Validation("message text is required", nil)
				}
				session, room, err := openRoom(c)
				if err != nil {
					return err
				}
				me, err := session.Participant()
				if err != nil {
					return err
				}
				msg, err := session.API().SendMessage(c.Context, usecase.AppendMessageInput{
					Room:     room,
					Sender:   me.ID,
					Receiver: c.String(peerFlag.Name),
					Text:     text,
				})
				if err != nil {
					return err
				}
				return printJSON(c, msg)
			},
		},
		{
			Name:  "history",
			Usage: "print the room shared with --peer",
			Flags: []cli.Flag{
				&peerFlag,
				&cli.Int64Flag{Name: "after", Usage: "only messages with a greater id"},
			},
			Action: func(c *cli.Context) error {
				session, room, err := openRoom(c)
				if err != nil {
					return err
				}
				messages, err := session.API().History(c.Context, room, c.Int64("after"))
				if err != nil {
					return err
				}
				for _, m := range messages {
					printMessage(c, m)
				}
				return nil
			},
		},
		{
			Name:  "watch",
			Usage: "follow the room shared with --peer",
			Flags: []cli.Flag{&peerFlag},
			Action: func(c *cli.Context) error {
				session, room, err := openRoom(c)
				if err != nil {
					return err
				}
				syncer, err := client.NewSyncer(session, client.SyncerConfig{
					Interval: c.Duration(intervalFlag.Name),
					Hints:    true,
					OnMessages: func(_ string, messages []*entity.ChatMessage) {
						for _, m := range messages {
							printMessage(c, m)
						}
					},
				})
				if err != nil {
					return err
				}
				if err := syncer.OpenRoom(room); err != nil {
					return err
				}
				return syncer.Run(c.Context)
			},
		},
	},
}

func openRoom(c *cli.Context) (*client.Session, string, error) {
	session, err := loggedIn(c)
	if err != nil {
		return nil, "", err
	}
	room, err := session.API().Channel(c.Context, c.String(peerFlag.Name))
	if err != nil {
		return nil, "", err
	}
	return session, room, nil
}

func printMessage(c *cli.Context, m *entity.ChatMessage) {
	fmt.Fprintf(c.App.Writer, "[%d %s] %s: %s\n", m.ID, m.CreatedAt.Local().Format("15:04:05"), m.Sender, m.Text)
}
