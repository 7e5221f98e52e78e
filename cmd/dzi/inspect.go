package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/greut/dzi/dzi"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dzi>...",
	Short: "Print the tiling parameters of descriptors",
	Long: `Print the tiling parameters of Deep Zoom descriptors, XML or JSON.

Nothing is rendered: only the descriptor is read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("json", false, "print the reports as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	colors := colorize()
	out := cmd.OutOrStdout()

	failed := 0
	var reports []dzi.Report
	for _, name := range args {
		payload, err := ioutil.ReadFile(name)
		if err == nil {
			var report dzi.Report
			report, err = dzi.Inspect(name, payload)
			if err == nil {
				reports = append(reports, report)
				if !asJSON {
					fmt.Fprintln(out, colors.Color(fmt.Sprintf("[bold]%s", report.Name)))
					fmt.Fprintln(out, report)
				}
				continue
			}
		}

		failed++
		fmt.Fprintln(cmd.ErrOrStderr(), colors.Color(fmt.Sprintf("[red]%s: %v", name, err)))
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d descriptors could not be read", failed, len(args))
	}
	return nil
}
