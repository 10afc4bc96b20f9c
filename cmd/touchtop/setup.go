package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixlim/touchtop/internal/settings"
)

var (
	setupSettingsPath string
	setupInteractive  bool
	setupEndpointOnly bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Point the device bridge at this receiver",
	Long: `Merges the exporter endpoint into the bridge's settings.json so the
device-side bridge exports its interaction stream to this machine.

Existing keys with different values are never overwritten, only reported.
With --interactive the merge writes nothing at all when it finds differing
values, so the file can be reviewed first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().StringVar(&setupSettingsPath, "settings", "", "bridge settings file (default ~/.touchbridge/settings.json)")
	setupCmd.Flags().BoolVar(&setupInteractive, "interactive", false, "write nothing when differing values are found")
	setupCmd.Flags().BoolVar(&setupEndpointOnly, "endpoint-only", false, "update only the endpoint key, forcefully")
}

func runSetup(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output := settings.Merge(settings.MergeOptions{
		SettingsPath: setupSettingsPath,
		GRPCPort:     cfg.Receiver.GRPCPort,
		Interactive:  setupInteractive,
		EndpointOnly: setupEndpointOnly,
	})

	for _, msg := range output.Messages {
		fmt.Println(msg)
	}
	for _, w := range output.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	switch output.Result {
	case settings.MergeSuccess:
		fmt.Println("Bridge settings updated. Restart the bridge to apply.")
		return nil
	case settings.MergeAlreadyConfigured:
		fmt.Println("Already configured. No changes needed.")
		return nil
	case settings.MergeNeedsConfirmation:
		fmt.Println("Differing values left untouched. Edit the file, or re-run with --endpoint-only to repoint the endpoint.")
		return nil
	case settings.MergeError:
		return output.Err
	default:
		return fmt.Errorf("unexpected merge result %d", output.Result)
	}
}
