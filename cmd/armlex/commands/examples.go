package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbeltran/armlex/internal/examples"
)

var examplesCmd = &cobra.Command{
	Use:   "examples [name]",
	Short: "List the bundled example programs or print one",
	Long: `Examples lists the programs bundled with the tool. Naming one prints
its source, ready to pipe into analyze or run:

  armlex examples
  armlex examples pick-and-place | armlex run --sim`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExamples,
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}

func runExamples(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		ex, err := examples.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Print(ex.Source)
		return nil
	}
	for _, ex := range examples.List() {
		fmt.Printf("%-18s %s\n", ex.Name, ex.Description)
	}
	return nil
}
