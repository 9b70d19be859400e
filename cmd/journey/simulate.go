package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/dukex/journey/pkg/config"
	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/log"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/services"
	"github.com/jonboulle/clockwork"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace/noop"
)

func NewSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Aliases:   []string{"s"},
		Usage:     "Evaluate a journey file for a test contact without storing anything",
		ArgsUsage: "<file.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format (json, text)",
				Value:   "text",
			},
			&cli.TimestampFlag{
				Name:  "at",
				Usage: "Evaluation time, overrides evaluated_at from the file",
				Config: cli.TimestampConfig{
					Layouts: []string{time.RFC3339},
				},
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("missing simulation file argument")
			}

			file, err := config.LoadSimulation(path)
			if err != nil {
				return err
			}

			if at := command.Timestamp("at"); !at.IsZero() {
				file.EvaluatedAt = at
			}

			result, err := simulateFile(ctx, file, log.WithModule("simulate"))
			if err != nil {
				return err
			}

			return writeResult(command.Root().Writer, command.String("output"), result)
		},
	}
}

// simulateFile evaluates a simulation file at its evaluation time. Files without a
// policy run with the default one.
func simulateFile(ctx context.Context, file *config.SimulationFile, logger *slog.Logger) (*models.SimulationResult, error) {
	clock := clockwork.NewRealClock()
	if !file.EvaluatedAt.IsZero() {
		clock = clockwork.NewFakeClockAt(file.EvaluatedAt)
	}

	policy := file.Policy
	if policy == nil {
		policy = services.DefaultPolicy(file.OrganizationID)
	}

	simulation := services.NewSimulation(
		nil,
		services.NewPolicy(nil, logger),
		journey.NewRunner(clock),
		noop.NewTracerProvider().Tracer("journey-simulate"),
		logger,
	)

	return simulation.Preview(ctx, &services.PreviewRequest{
		OrganizationID: file.OrganizationID,
		Steps:          file.Steps,
		Contact:        file.Contact,
		Policy:         policy,
	})
}

func writeResult(w io.Writer, format string, result *models.SimulationResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(result)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

		fmt.Fprintln(tw, "STEP\tKIND\tSTATUS\tSCHEDULED\tDETAIL")

		for i, step := range result.StepResults {
			scheduled := "-"
			if step.ScheduledAt != nil {
				scheduled = step.ScheduledAt.Format(time.RFC3339)
			}

			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, step.Kind, step.Status, scheduled, step.Detail)
		}

		fmt.Fprintf(tw, "\nblocked: %t\tsent: %d\tquiet hours: %d\tcap blocked: %t\n",
			result.Blocked, result.SentActions, result.SuppressedByQuietHours, result.CapBlocked)

		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
