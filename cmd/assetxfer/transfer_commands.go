package main

import (
	"fmt"
	"io"

	"github.com/brojonat/assetxfer/service/config"
	"github.com/brojonat/assetxfer/service/custody"
	"github.com/brojonat/assetxfer/service/ledger"
	natspkg "github.com/brojonat/assetxfer/service/nats"
	"github.com/brojonat/assetxfer/service/transfer"
	"github.com/urfave/cli/v2"
)

// accountsFromArgs reads "<from-account> <from-pin> <to-account> <to-pin>".
func accountsFromArgs(c *cli.Context) (transfer.Account, transfer.Account, error) {
	if c.NArg() != 4 {
		return transfer.Account{}, transfer.Account{}, fmt.Errorf("expected 4 arguments: <from-account> <from-pin> <to-account> <to-pin>, got %d", c.NArg())
	}
	args := c.Args()
	from := transfer.Account{Name: args.Get(0), PIN: args.Get(1)}
	to := transfer.Account{Name: args.Get(2), PIN: args.Get(3)}
	return from, to, nil
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Create an asset owned by one account and transfer it to another",
		ArgsUsage: "<from-account> <from-pin> <to-account> <to-pin>",
		Description: `Create a single-unit asset owned by <from-account>, then submit the
receiver's opt-in grouped with the transfer. Both steps are signed by the
custody service and polled until confirmed.

Configuration is read from the environment (ORE_*, ALGOD_*, NATS_URL, ...).

Example:
  assetxfer transfer ore1alice 1234 ore1bob 5678`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "asset-name",
				Usage: "Name of the created asset (defaults to ASSET_NAME)",
			},
			&cli.Uint64Flag{
				Name:  "amount",
				Usage: "Units to transfer",
				Value: 1,
			},
			&cli.IntFlag{
				Name:    "rounds",
				Aliases: []string{"r"},
				Usage:   "Rounds to wait for each confirmation (defaults to CONFIRMATION_TIMEOUT_ROUNDS)",
			},
		},
		Action: func(c *cli.Context) error {
			from, to, err := accountsFromArgs(c)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := loggerFromContext(c)

			algodClient, err := newAlgorandClient(cfg, logger)
			if err != nil {
				return err
			}

			var publisher natspkg.Publisher
			if cfg.NATSURL != "" {
				p, err := natspkg.NewPublisher(cfg.NATSURL, nil, logger)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
			}

			rounds := cfg.ConfirmationTimeoutRounds
			if c.IsSet("rounds") {
				rounds = c.Int("rounds")
			}

			spec := transfer.DefaultAssetSpec(cfg.AssetName)
			spec.UnitName = cfg.AssetUnitName
			if name := c.String("asset-name"); name != "" {
				spec.Name = name
			}

			svc := transfer.NewService(
				custody.NewClient(cfg.OreURL, cfg.OreAppID, cfg.OreAPIKey, cfg.OreServiceKey, nil, logger),
				algodClient,
				ledger.NewPoller(algodClient, algodClient.Network(), nil, logger),
				publisher,
				algodClient.Network(),
				rounds,
				logger,
			)

			ctx, cancel := signalContext()
			defer cancel()

			result, err := svc.Run(ctx, transfer.Params{
				From:   from,
				To:     to,
				Asset:  spec,
				Amount: c.Uint64("amount"),
			})
			if err != nil {
				if result != nil && result.Asset != nil {
					fmt.Fprintf(c.App.ErrWriter, "created asset %d before failing\n", result.Asset.AssetIndex)
				}
				return err
			}

			return output(c, result, func(w io.Writer) {
				fmt.Fprintf(w, "created asset %d (tx %s, round %d)\n",
					result.Asset.AssetIndex, result.Asset.TxID, result.Asset.ConfirmedRound)
				fmt.Fprintf(w, "transferred %d to %s (tx %s, round %d)\n",
					result.Transfer.Amount, to.Name, result.Transfer.TransferTxID, result.Transfer.ConfirmedRound)
				fmt.Fprintf(w, "pending transactions for receiver: %d\n", len(result.Transfer.PendingTxIDs))
			})
		},
	}
}
