package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/csv-mailer/pkg/mailctl/output"
	"github.com/telekom/csv-mailer/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show mailctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			// Get runtime if available (for custom writer), but don't fail if missing
			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			format := output.FormatText
			if rt != nil {
				writer = rt.Writer()
				f, err := output.ParseFormat(rt.outputFormat)
				if err != nil {
					return err
				}
				format = f
			}

			if format == output.FormatText {
				_, _ = fmt.Fprintf(writer, "mailctl %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildDate)
				return nil
			}
			return output.WriteObject(writer, format, info)
		},
	}
}
