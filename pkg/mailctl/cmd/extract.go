package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/csv-mailer/pkg/extract"
	"github.com/telekom/csv-mailer/pkg/mailctl/output"
)

// readAddresses extracts addresses from the CSV file at path.
func readAddresses(path string) (extract.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return extract.Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	res, err := extract.Reader(f)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}
	return res, nil
}

func NewExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the unique email addresses found in a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(rt.outputFormat)
			if err != nil {
				return err
			}

			res, err := readAddresses(args[0])
			if err != nil {
				return err
			}
			if res.Count() == 0 {
				return fmt.Errorf("no email addresses found in %s", args[0])
			}
			rt.Log().Debugw("Extracted email addresses", "file", args[0], "count", res.Count(), "totalRows", res.TotalRows)

			if format == output.FormatText {
				output.WriteAddressList(rt.Writer(), res.Emails)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, output.ExtractSummary{
				File:      args[0],
				Emails:    res.Emails,
				Count:     res.Count(),
				TotalRows: res.TotalRows,
			})
		},
	}
}
