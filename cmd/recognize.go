package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-whitelist/internal/door"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "List the whitelisted persons visible in an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

var ringCmd = &cobra.Command{
	Use:   "ring <image>",
	Short: "Simulate a doorbell press with a captured image",
	Args:  cobra.ExactArgs(1),
	RunE:  runRing,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(ringCmd)

	ringCmd.Flags().Bool("json", false, "Output the visit as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		names, err := a.rec.RecognizeFaces(ctx, args[0])
		if err != nil {
			return fmt.Errorf("recognizing %s: %w", args[0], err)
		}
		if len(names) == 0 {
			fmt.Println("No whitelisted person recognized")
			return nil
		}
		fmt.Println(strings.Join(names, "\n"))
		return nil
	})
}

func runRing(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		bell := door.New(a.rec, door.NewLogLock(a.log), a.cfg.Door.UnlockDuration, a.log)
		visit, err := bell.Ring(ctx, args[0])
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return outputJSON(visit)
		}
		fmt.Println(visit.Message)
		return nil
	})
}
