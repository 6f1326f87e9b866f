package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"agriconnect/internal/client"
	"agriconnect/internal/domain/entity"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
)

var requestCmd = &cli.Command{
	Name:  "request",
	Usage: "create and manage match requests",
	Subcommands: []*cli.Command{
		requestCreateCmd,
		requestListCmd,
		requestTransitionCmd("accept", "accept a pending request (seller only)"),
		requestTransitionCmd("reject", "reject a pending request (seller only)"),
		requestDeleteCmd,
	},
}

var requestCreateCmd = &cli.Command{
	Name:  "create",
	Usage: "send a request from a farmer to a seller",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "farmer", Usage: "farmer id, defaults to you"},
		&cli.StringFlag{Name: "seller", Usage: "seller id, defaults to you"},
		&cli.StringFlag{Name: "crop", Required: true},
		&cli.StringFlag{Name: "region", Required: true},
		&cli.StringFlag{Name: "price", Required: true},
	},
	Action: func(c *cli.Context) error {
		session, err := loggedIn(c)
		if err != nil {
			return err
		}
		me, err := session.Participant()
		if err != nil {
			return err
		}

		input := usecase.CreateRequestInput{
			FarmerID: c.String("farmer"),
			SellerID: c.String("seller"),
			Crop:     c.String("crop"),
			Region:   c.String("region"),
			Price:    usecase.Price(c.String("price")),
		}
		if input.FarmerID == "" && me.Role == entity.RoleFarmer {
			input.FarmerID = me.ID
		}
		if input.SellerID == "" && me.Role == entity.RoleSeller {
			input.SellerID = me.ID
		}

		req, err := session.API().CreateRequest(c.Context, input)
		if err != nil {
			return err
		}
		return printJSON(c, req)
	},
}

var requestListCmd = &cli.Command{
	Name:  "list",
	Usage: "list your requests, newest first",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "role", Usage: "farmer or seller"},
		&cli.StringFlag{Name: "status", Usage: "pending, accepted or rejected"},
	},
	Action: func(c *cli.Context) error {
		session, err := loggedIn(c)
		if err != nil {
			return err
		}
		list, err := session.API().ListRequests(c.Context, c.String("role"), c.String("status"))
		if err != nil {
			return err
		}
		return printJSON(c, list)
	},
}

func requestTransitionCmd(action, usage string) *cli.Command {
	return &cli.Command{
		Name:      action,
		Usage:     usage,
		ArgsUsage: "<request-id>",
		Action: func(c *cli.Context) error {
			id, err := requestID(c)
			if err != nil {
				return err
			}
			session, err := loggedIn(c)
			if err != nil {
				return err
			}

			var req *entity.MatchRequest
			if action == "accept" {
				req, err = session.API().Accept(c.Context, id)
			} else {
				req, err = session.API().Reject(c.Context, id)
			}
			if err != nil {
				return err
			}
			return printJSON(c, req)
		},
	}
}

var requestDeleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "delete a request you are part of",
	ArgsUsage: "<request-id>",
	Action: func(c *cli.Context) error {
		id, err := requestID(c)
		if err != nil {
			return err
		}
		session, err := loggedIn(c)
		if err != nil {
			return err
		}
		if err := session.API().DeleteRequest(c.Context, id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "request %d deleted\n", id)
		return nil
	},
}

func requestID(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, errors.Validation("expected exactly one request id", nil)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation(fmt.Sprintf("invalid request id %q", c.Args().First()), err)
	}
	return id, nil
}

var requestsCmd = &cli.Command{
	Name:  "requests",
	Usage: "follow your requests",
	Subcommands: []*cli.Command{
		{
			Name:  "watch",
			Usage: "print pending requests and accepted chats every time they change",
			Action: func(c *cli.Context) error {
				session, err := loggedIn(c)
				if err != nil {
					return err
				}
				syncer, err := client.NewSyncer(session, client.SyncerConfig{
					Interval: c.Duration(intervalFlag.Name),
					Hints:    true,
					OnChats: func(chats []entity.ActiveChat) {
						for _, chat := range chats {
							fmt.Fprintf(c.App.Writer, "#%d %s with %s (%s) room=%s\n",
								chat.Request.ID, chat.Request.Crop, chat.PeerName, chat.PeerID, chat.ChannelID)
						}
						fmt.Fprintf(c.App.Writer, "-- %d active\n", len(chats))
					},
					OnRequests: func(requests []*entity.MatchRequest) {
						for _, r := range requests {
							fmt.Fprintf(c.App.Writer, "#%d pending: %s (%s) -> %s (%s) %s in %s at %.2f\n",
								r.ID, r.FarmerName, r.FarmerID, r.SellerName, r.SellerID, r.Crop, r.Region, r.Price)
						}
						fmt.Fprintf(c.App.Writer, "-- %d pending\n", len(requests))
					},
				})
				if err != nil {
					return err
				}
				return syncer.Run(c.Context)
			},
		},
	},
}
