// Package watchercli is the accesswatch command line interface.
package watchercli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/terriblefail/accesswatch/internal/config"
	"github.com/terriblefail/accesswatch/internal/hidsvc"
	"github.com/terriblefail/accesswatch/pkg/watcher"
)

const defaultConfigFile = "accesswatch.yml"

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:   "accesswatch",
		Short: "Audio feedback for QMK keyboard state changes",
		Long: `accesswatch watches a QMK keyboard's raw HID interface for layer and
caps-word events and plays an audio cue for each one.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigFile, "configuration file")
	rootCmd.AddCommand(NewRun(&configPath))
	rootCmd.AddCommand(NewListDevices())
	rootCmd.AddCommand(NewSeenDevices(&configPath))
	return rootCmd
}

func NewRun(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the watcher",
		Long:  `Run the watcher until interrupted. Creates a default configuration file on first run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(*configPath); os.IsNotExist(err) {
				if err := config.WriteDefault(*configPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default configuration file created at %s.\n", *configPath)
				fmt.Fprintln(cmd.OutOrStdout(), "Please edit the configuration file and run accesswatch again.")
				return nil
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			w, err := watcher.New(cfg)
			if err != nil {
				return err
			}
			defer w.Close()
			return w.Run(cmd.Context())
		},
	}
}

func NewListDevices() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List HID devices",
		Long:  `List HID devices currently connected to the system, with the usage tuples needed for the device section of the configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := hidsvc.NewHidapiBackend().Enumerate()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

func NewSeenDevices(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seen-devices",
		Short: "List previously connected devices",
		Long:  `List every device the watcher has connected to, with first/last seen timestamps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			w, err := watcher.New(cfg)
			if err != nil {
				return err
			}
			defer w.Close()
			devices, err := w.SeenDevices()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}
