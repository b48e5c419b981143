package main

import (
	"fmt"
	"io"

	"github.com/brojonat/assetxfer/service/temporal"
	"github.com/brojonat/assetxfer/service/transfer"
	"github.com/urfave/cli/v2"
)

type workflowStartOutput struct {
	WorkflowID string                        `json:"workflow_id"`
	RunID      string                        `json:"run_id"`
	TaskQueue  string                        `json:"task_queue"`
	Result     *temporal.AssetTransferResult `json:"result,omitempty"`
}

func workflowStartCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a durable asset transfer workflow",
		ArgsUsage: "<from-account> <from-pin> <to-account> <to-pin>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "task-queue",
				Usage:   "Temporal task queue the worker listens on",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "assetxfer-transfers",
			},
			&cli.StringFlag{
				Name:    "asset-name",
				Usage:   "Name of the created asset",
				EnvVars: []string{"ASSET_NAME"},
				Value:   "My Asset",
			},
			&cli.Uint64Flag{
				Name:  "amount",
				Usage: "Units to transfer",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the workflow completes and print its result",
			},
		},
		Action: func(c *cli.Context) error {
			from, to, err := accountsFromArgs(c)
			if err != nil {
				return err
			}
			logger := loggerFromContext(c)

			tc, err := temporal.NewClient(
				c.String("temporal-host"),
				c.String("temporal-namespace"),
				c.String("task-queue"),
				logger,
			)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx, cancel := signalContext()
			defer cancel()

			workflowID, runID, err := tc.StartTransfer(ctx, temporal.AssetTransferInput{
				FromAccount: from.Name,
				FromPIN:     from.PIN,
				ToAccount:   to.Name,
				ToPIN:       to.PIN,
				Asset:       transfer.DefaultAssetSpec(c.String("asset-name")),
				Amount:      c.Uint64("amount"),
			})
			if err != nil {
				return err
			}

			out := workflowStartOutput{WorkflowID: workflowID, RunID: runID, TaskQueue: tc.TaskQueue()}
			if c.Bool("wait") {
				out.Result, err = tc.GetTransferResult(ctx, workflowID, runID)
				if err != nil {
					return err
				}
			}

			if err := output(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "started workflow %s (run %s) on %s\n", out.WorkflowID, out.RunID, out.TaskQueue)
				if out.Result != nil && out.Result.Asset != nil && out.Result.Transfer != nil {
					fmt.Fprintf(w, "asset %d transferred in round %d\n",
						out.Result.Asset.AssetIndex, out.Result.Transfer.ConfirmedRound)
				}
			}); err != nil {
				return err
			}
			if out.Result != nil && out.Result.Error != nil {
				if out.Result.Asset != nil {
					return fmt.Errorf("asset %d created but transfer failed: %s", out.Result.Asset.AssetIndex, *out.Result.Error)
				}
				return fmt.Errorf("workflow failed: %s", *out.Result.Error)
			}
			return nil
		},
	}
}
