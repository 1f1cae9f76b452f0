package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/audiolibrelab/quickrec/internal/service"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved recordings",
	Long:    `List the recordings directory sorted by name. Viewing the list clears the "New" badge.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		svc := newService(nil)
		defer svc.Close()

		hadNew := svc.HasNewRecordings()
		recs, err := svc.ListRecordings()
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		printRecordings(os.Stdout, recs, hadNew)
		return nil
	},
}

func printRecordings(w io.Writer, recs []service.RecordingInfo, hadNew bool) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recordings yet. Run 'quickrec record' to make one.")
		return
	}

	if hadNew {
		fmt.Fprintln(w, "New recordings since you last looked.")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Name, rec.SizeHuman, rec.ModTimeHuman)
	}
	tw.Flush()
}

func init() {
	listCmd.Flags().Bool("json", false, "print the listing as JSON")
}
