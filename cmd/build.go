package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [folder]",
	Short: "Rebuild the whitelist from a folder",
	Long: `Rebuild the whitelist from a folder with one subfolder per person.
The existing person-group is deleted first, every image with exactly one
face is registered and the group is trained. Images without a face, with
several faces or in an unsupported format are skipped and reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("json", false, "Output the build report as JSON")
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	var folder string
	if len(args) == 1 {
		folder = args[0]
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.build(ctx, folder)
	if report != nil {
		if mustGetBool(cmd, "json") {
			if jerr := outputJSON(report); jerr != nil {
				return jerr
			}
		} else {
			printReport(report)
		}
	}
	if err != nil {
		return fmt.Errorf("building whitelist: %w", err)
	}
	fmt.Printf("Whitelist %s is trained\n", a.id)
	return nil
}
