package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aliher1911/resinctl/cli"
	"github.com/aliher1911/resinctl/config"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		sim        bool
	)

	load := func() (config.Machine, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		return cfg, cli.SetupLogging(cfg.Log)
	}
	signals := func() <-chan os.Signal {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		return sigs
	}

	root := &cobra.Command{
		Use:           "resinctl",
		Short:         "resin printer vat tilt and build platform control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "machine config file (TOML)")
	root.PersistentFlags().BoolVar(&sim, "sim", false, "run on simulated hardware")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "run control loop with front panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return cli.Service(cfg, sim, signals())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "home",
		Short: "home build platform against bottom switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return cli.Home(cfg, sim, signals())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "tilt",
		Short: "perform a single vat tilt with saved angle and speed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return cli.Tilt(cfg, sim, signals())
		},
	})

	var target uint16
	move := &cobra.Command{
		Use:   "move",
		Short: "move build platform to absolute position in 0.01 mm",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return cli.Move(cfg, sim, target, signals())
		},
	}
	move.Flags().Uint16VarP(&target, "target", "t", 0, "target position")
	root.AddCommand(move)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
