package command

import (
	"github.com/urfave/cli/v2"
)

// MetricsCommand restores and verifies the session, then dumps the
// counters it produced in the Prometheus text format.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Print session and API metrics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include Go runtime metrics",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip the session check",
			},
		},
		Action: metrics,
	}
}

func metrics(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}
	if !c.Bool("offline") {
		if err := env.Session.Init(c.Context); err != nil {
			return err
		}
		if _, err := env.Session.VerifyAuth(c.Context); err != nil {
			return err
		}
	}
	return env.Metrics.WriteText(env.Out, c.Bool("all"))
}
