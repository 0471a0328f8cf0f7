package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addImageCmd = &cobra.Command{
	Use:   "add-image <image>",
	Short: "Add a single image to the whitelist",
	Long: `Add a single image to the whitelist. The image must contain exactly one
face. Without --person the person is the name of the image's folder and is
created when missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runAddImage,
}

var removeImageCmd = &cobra.Command{
	Use:   "remove-image <image>",
	Short: "Remove a single image from the whitelist",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveImage,
}

func init() {
	rootCmd.AddCommand(addImageCmd)
	rootCmd.AddCommand(removeImageCmd)

	addImageCmd.Flags().String("person", "", "Person the image belongs to (defaults to the folder name)")
	removeImageCmd.Flags().String("person", "", "Person the image belongs to (defaults to the folder name)")
}

func runAddImage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		if err := a.rec.AddImageToWhitelist(ctx, args[0], mustGetString(cmd, "person")); err != nil {
			return fmt.Errorf("adding %s: %w", args[0], err)
		}
		fmt.Printf("Added %s\n", args[0])
		return nil
	})
}

func runRemoveImage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		if err := a.rec.RemoveImageFromWhitelist(ctx, args[0], mustGetString(cmd, "person")); err != nil {
			return fmt.Errorf("removing %s: %w", args[0], err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	})
}
