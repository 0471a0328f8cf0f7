package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	captureDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "face-whitelist",
	Short: "Keep a Face API whitelist in sync with a folder of photos",
	Long: `Face Whitelist maintains a person-group in the Face API that mirrors a
local folder with one subfolder of photos per person, and recognises
whitelisted visitors in new images, for example at a front door.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save Face API responses for testing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
