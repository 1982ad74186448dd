package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"patriotpilot/cmd/pilot/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policyFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "policy",
			Usage: "retrieval policy: topk or threshold (default from RETRIEVAL_POLICY)",
		},
		&cli.IntFlag{
			Name:  "k",
			Usage: "number of chunks for the topk policy (default from TOP_K)",
		},
		&cli.FloatFlag{
			Name:  "threshold",
			Usage: "minimum cosine similarity for the threshold policy (default from SIMILARITY_THRESHOLD)",
		},
	}

	app := &cli.Command{
		Name:  "pilot",
		Usage: "build and query the PatriotPilot retrieval index",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "rebuild the index from DATA_DIR",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mirror",
						Usage: "also write the vectors to the Qdrant collection (requires QDRANT_URL)",
					},
				},
				Action: commands.IndexAction,
			},
			{
				Name:      "ask",
				Usage:     "answer one question from the index",
				ArgsUsage: "<question>",
				Flags: append(policyFlags, &cli.BoolFlag{
					Name:  "show-sources",
					Usage: "print the retrieved chunks after the answer",
				}),
				Action: commands.AskAction,
			},
			{
				Name:  "chat",
				Usage: "interactive question loop; type 'exit' to quit",
				Flags: append(policyFlags, &cli.BoolFlag{
					Name:  "direct",
					Usage: "send queries to the LLM without retrieval",
				}),
				Action: commands.ChatAction,
			},
			{
				Name:   "inspect",
				Usage:  "print the manifest of the persisted index",
				Action: commands.InspectAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
