package main

import (
	"github.com/urfave/cli/v2"
)

var searchCmd = &cli.Command{
	Name:  "search",
	Usage: "rank sellers for a crop and region",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "crop"},
		&cli.StringFlag{Name: "region"},
	},
	Action: func(c *cli.Context) error {
		session, err := loggedIn(c)
		if err != nil {
			return err
		}
		results, err := session.API().Search(c.Context, c.String("crop"), c.String("region"))
		if err != nil {
			return err
		}
		return printJSON(c, results)
	},
}
