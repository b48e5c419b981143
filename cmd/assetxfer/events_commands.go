package main

import (
	"fmt"
	"io"

	natspkg "github.com/brojonat/assetxfer/service/nats"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func eventsTailCommand() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Stream confirmation events as they are published",
		Description: `Subscribe to the CONFIRMATIONS JetStream stream and print each event.

Events are published to: confirmations.{network}.{tx_id}

Example:
  assetxfer events tail --network algorand --where '.outcome != "confirmed"'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "Only show events for this network label",
			},
			&cli.StringFlag{
				Name:  "where",
				Usage: "Only show events for which this jq expression is truthy",
			},
		},
		Action: func(c *cli.Context) error {
			logger := loggerFromContext(c)

			var where *gojq.Code
			if expr := c.String("where"); expr != "" {
				code, err := compileJQ(expr)
				if err != nil {
					return err
				}
				where = code
			}

			ctx, cancel := signalContext()
			defer cancel()

			if !c.Bool("json") && c.String("jq") == "" {
				fmt.Fprintf(c.App.ErrWriter, "Subscribing to %s (Ctrl+C to stop)\n", natspkg.FilterSubject(c.String("network")))
			}

			return natspkg.Subscribe(ctx, c.String("nats-url"), c.String("network"), logger, func(event *natspkg.ConfirmationEvent) error {
				if where != nil && !matchesJQ(where, event) {
					return nil
				}
				return output(c, event, func(w io.Writer) {
					printEvent(w, event)
				})
			})
		},
	}
}

func printEvent(w io.Writer, e *natspkg.ConfirmationEvent) {
	switch e.Outcome {
	case "confirmed":
		fmt.Fprintf(w, "%s %s %s confirmed in round %d\n", e.PublishedAt.Format("15:04:05"), e.Network, e.TxID, e.ConfirmedRound)
	case "rejected":
		fmt.Fprintf(w, "%s %s %s rejected: %s\n", e.PublishedAt.Format("15:04:05"), e.Network, e.TxID, e.PoolError)
	case "timeout":
		fmt.Fprintf(w, "%s %s %s not confirmed after %d rounds\n", e.PublishedAt.Format("15:04:05"), e.Network, e.TxID, e.TimeoutRounds)
	default:
		fmt.Fprintf(w, "%s %s %s %s: %s\n", e.PublishedAt.Format("15:04:05"), e.Network, e.TxID, e.Outcome, e.Error)
	}
}
