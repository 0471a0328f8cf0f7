package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addPersonCmd = &cobra.Command{
	Use:   "add-person <folder>",
	Short: "Add a person from a folder of images",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddPerson,
}

var removePersonCmd = &cobra.Command{
	Use:   "remove-person <name>",
	Short: "Remove a person and all of their faces",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemovePerson,
}

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "List the whitelisted persons",
	Args:  cobra.NoArgs,
	RunE:  runPersons,
}

func init() {
	rootCmd.AddCommand(addPersonCmd)
	rootCmd.AddCommand(removePersonCmd)
	rootCmd.AddCommand(personsCmd)

	addPersonCmd.Flags().String("name", "", "Person name (defaults to the folder name)")
	personsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAddPerson(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		report, err := a.rec.AddPersonToWhitelist(ctx, args[0], mustGetString(cmd, "name"))
		if report != nil {
			printReport(report)
		}
		if err != nil {
			return fmt.Errorf("adding person from %s: %w", args[0], err)
		}
		return nil
	})
}

func runRemovePerson(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		if err := a.rec.RemovePersonFromWhitelist(ctx, args[0]); err != nil {
			return fmt.Errorf("removing %s: %w", args[0], err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	})
}

func runPersons(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		persons, err := a.rec.Persons()
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return outputJSON(persons)
		}
		fmt.Printf("Whitelist %s (%d persons)\n", a.id, len(persons))
		for _, p := range persons {
			fmt.Printf("  %-30s %3d faces  %s\n", p.Name, p.FaceCount, p.SourceFolder)
		}
		return nil
	})
}
