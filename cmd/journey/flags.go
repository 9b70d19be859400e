package main

import (
	"github.com/dukex/journey/pkg/dispatch"
	cli "github.com/urfave/cli/v3"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (file:// or postgres://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func eventBusFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "event-bus",
		Usage:   "Event bus type (gochannel, kafka)",
		Value:   "gochannel",
		Sources: cli.EnvVars("EVENT_BUS_TYPE"),
	}
}

func sendHistoryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "send-history-url",
		Usage:   "Frequency cap ledger URL (memory:// or redis://)",
		Value:   "memory://",
		Sources: cli.EnvVars("SEND_HISTORY_URL"),
	}
}

func scheduleFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "schedule",
		Usage:   "Cron schedule of the due-action sweep",
		Value:   dispatch.DefaultSchedule,
		Sources: cli.EnvVars("DISPATCH_SCHEDULE"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func otelFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "otel",
		Usage:   "Export traces over OTLP/HTTP",
		Sources: cli.EnvVars("OTEL_ENABLED"),
	}
}
