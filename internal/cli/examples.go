package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// printExamples displays usage examples for the program
func printExamples(w io.Writer) {
	fmt.Fprintln(w, "\n📋 Jobluu Usage Examples 📋")
	fmt.Fprintln(w, "\n1. Sign in with email and password, or with your Google account:")
	fmt.Fprintln(w, "   jobluu login --email priya@example.com")
	fmt.Fprintln(w, "   jobluu login --google")

	fmt.Fprintln(w, "\n2. Create an employer account:")
	fmt.Fprintln(w, "   jobluu register --name \"Priya Shah\" --email priya@example.com --account-type EMPLOYER")

	fmt.Fprintln(w, "\n3. Find remote Go jobs paying between 20 and 40 LPA, best paid first, as a table:")
	fmt.Fprintln(w, "   jobluu jobs list --search go --location remote --min-salary 20 --max-salary 40 --sort salary-desc --table")

	fmt.Fprintln(w, "\n4. Show one job in full:")
	fmt.Fprintln(w, "   jobluu jobs show 42")

	fmt.Fprintln(w, "\n5. Post every job in a file, skipping those already on the board:")
	fmt.Fprintln(w, "   jobluu jobs import openings.yaml --workers 8")
	fmt.Fprintln(w, "   jobluu jobs import openings.yaml --dry-run")

	fmt.Fprintln(w, "\n6. Search talent with Python or SQL skills:")
	fmt.Fprintln(w, "   jobluu talent list --skills python,sql --sort salary-asc")

	fmt.Fprintln(w, "\n7. Complete your profile, then check notifications:")
	fmt.Fprintln(w, "   jobluu profile update --title \"Backend Engineer\" --skills go,postgres,kubernetes")
	fmt.Fprintln(w, "   jobluu notifications")

	fmt.Fprintln(w, "\n8. Watch for new DevOps jobs every 10 minutes:")
	fmt.Fprintln(w, "   jobluu watch --search devops --schedule \"@every 10m\"")

	fmt.Fprintln(w, "\n9. Keep your session alive from a script:")
	fmt.Fprintln(w, "   jobluu validate --auto --silence")
}

func newExamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show usage examples",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printExamples(cmd.OutOrStdout())
		},
	}
}
