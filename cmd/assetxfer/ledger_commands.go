package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/assetxfer/service/algorand"
	"github.com/brojonat/assetxfer/service/config"
	"github.com/brojonat/assetxfer/service/ledger"
	"github.com/brojonat/assetxfer/service/solana"
	"github.com/urfave/cli/v2"
)

const (
	networkAlgorand = "algorand"
	networkSolana   = "solana"
)

// nodeFlags select and address the ledger node. They mirror the config
// environment variables so commands that only read the ledger do not need
// custody credentials.
func nodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "network",
			Usage: "Ledger to query (algorand or solana)",
			Value: networkAlgorand,
		},
		&cli.StringFlag{
			Name:    "algod-server",
			Usage:   "algod server URL",
			EnvVars: []string{"ALGOD_SERVER"},
		},
		&cli.StringFlag{
			Name:    "algod-port",
			Usage:   "algod server port",
			EnvVars: []string{"ALGOD_PORT"},
		},
		&cli.StringFlag{
			Name:    "algod-token",
			Usage:   "algod API token",
			EnvVars: []string{"ALGOD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "algod-token-header",
			Usage:   "Header the algod API token is sent in",
			EnvVars: []string{"ALGOD_TOKEN_HEADER"},
			Value:   algorand.DefaultTokenHeader,
		},
		&cli.StringFlag{
			Name:    "algod-network",
			Usage:   "Label for the algod network in logs and events",
			EnvVars: []string{"ALGOD_NETWORK"},
			Value:   networkAlgorand,
		},
		&cli.StringFlag{
			Name:    "solana-rpc-url",
			Usage:   "Solana RPC URL",
			EnvVars: []string{"SOLANA_RPC_URL"},
			Value:   "https://api.devnet.solana.com",
		},
		&cli.StringFlag{
			Name:    "solana-ws-url",
			Usage:   "Solana websocket URL (derived from the RPC URL when empty)",
			EnvVars: []string{"SOLANA_WS_URL"},
		},
	}
}

// newAlgorandClient builds the algod-backed client from configuration.
func newAlgorandClient(cfg *config.Config, logger *slog.Logger) (*algorand.Client, error) {
	api, err := algorand.NewAlgodAPI(cfg.AlgodAddress(), cfg.AlgodToken, cfg.AlgodTokenHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client: %w", err)
	}
	return algorand.NewClient(api, cfg.AlgodNetwork, nil, logger), nil
}

// nodeFromFlags returns the ledger node selected by --network and the label
// it reports under.
func nodeFromFlags(c *cli.Context, logger *slog.Logger) (ledger.Node, string, error) {
	switch network := c.String("network"); network {
	case networkAlgorand:
		cfg := &config.Config{
			AlgodServer:      c.String("algod-server"),
			AlgodPort:        c.String("algod-port"),
			AlgodToken:       c.String("algod-token"),
			AlgodTokenHeader: c.String("algod-token-header"),
			AlgodNetwork:     c.String("algod-network"),
		}
		if cfg.AlgodServer == "" {
			return nil, "", fmt.Errorf("--algod-server (or ALGOD_SERVER) is required")
		}
		client, err := newAlgorandClient(cfg, logger)
		if err != nil {
			return nil, "", err
		}
		return client, client.Network(), nil

	case networkSolana:
		rpcURL := c.String("solana-rpc-url")
		wsURL := c.String("solana-ws-url")
		if wsURL == "" {
			wsURL = solana.WSURLFromRPC(rpcURL)
		}
		client := solana.NewClient(
			solana.NewRPCClient(rpcURL),
			solana.NewSlotSubscriber(wsURL),
			networkSolana,
			nil,
			logger,
		)
		return client, networkSolana, nil

	default:
		return nil, "", fmt.Errorf("unknown network %q (want %s or %s)", network, networkAlgorand, networkSolana)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func confirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "confirm",
		Usage:     "Wait for an already submitted transaction to be confirmed",
		ArgsUsage: "<txid>",
		Description: `Poll the ledger until the transaction is confirmed, rejected by the
transaction pool, or --rounds rounds have passed.

Example:
  assetxfer confirm --rounds 10 NTAESFCB3WOD7SAOL42KSPVARLB3JFA3MNX3AESWHYVT2RMYDVZI
  assetxfer confirm --network solana 5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp...`,
		Flags: append(nodeFlags(),
			&cli.IntFlag{
				Name:    "rounds",
				Aliases: []string{"r"},
				Usage:   "Number of rounds to wait before giving up",
				EnvVars: []string{"CONFIRMATION_TIMEOUT_ROUNDS"},
				Value:   ledger.DefaultTimeoutRounds,
			},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("transaction id is required")
			}
			txID := ledger.TransactionID(c.Args().Get(0))
			logger := loggerFromContext(c)

			node, network, err := nodeFromFlags(c, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			poller := ledger.NewPoller(node, network, nil, logger)
			info, err := poller.WaitForConfirmation(ctx, txID, c.Int("rounds"))
			if err != nil {
				return err
			}

			return output(c, info, func(w io.Writer) {
				fmt.Fprintf(w, "Transaction %s confirmed in round %d\n", info.TxID, info.ConfirmedRound)
				if info.AssetIndex != 0 {
					fmt.Fprintf(w, "  Asset index: %d\n", info.AssetIndex)
				}
				if info.Sender != "" {
					fmt.Fprintf(w, "  Sender: %s\n", info.Sender)
				}
			})
		},
	}
}

type statusOutput struct {
	Network   string `json:"network"`
	LastRound uint64 `json:"last_round"`
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the ledger node's last round",
		Flags: nodeFlags(),
		Action: func(c *cli.Context) error {
			logger := loggerFromContext(c)

			node, network, err := nodeFromFlags(c, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			status, err := node.Status(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w", ledger.ErrNodeUnavailable, err)
			}
			if status == nil {
				return ledger.ErrNodeUnavailable
			}

			out := statusOutput{Network: network, LastRound: status.LastRound}
			return output(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s: last round %d\n", out.Network, out.LastRound)
			})
		},
	}
}
