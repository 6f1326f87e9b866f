package main

import (
	"github.com/urfave/cli/v2"

	"agriconnect/internal/usecase"
)

var tokenCmd = &cli.Command{
	Name:  "token",
	Usage: "register a participant on a development server and print its token",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "role", Usage: "farmer or seller", Required: true},
		&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
		&cli.StringFlag{Name: "district"},
		&cli.StringSliceFlag{Name: "commodity", Usage: "repeatable, sellers only"},
		&cli.Float64Flag{Name: "rating"},
		&cli.Float64Flag{Name: "experience", Usage: "years"},
	},
	Action: func(c *cli.Context) error {
		input := usecase.RegisterInput{
			ID:          c.String("id"),
			Role:        c.String("role"),
			DisplayName: c.String("name"),
			District:    c.String("district"),
			Commodities: c.StringSlice("commodity"),
		}
		if c.IsSet("rating") {
			v := c.Float64("rating")
			input.Rating = &v
		}
		if c.IsSet("experience") {
			v := c.Float64("experience")
			input.ExperienceYears = &v
		}

		resp, err := apiClient(c).IssueDevToken(c.Context, input)
		if err != nil {
			return err
		}
		return printJSON(c, resp)
	},
}
