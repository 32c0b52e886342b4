/*
SPDX-FileCopyrightText: 2025 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "", text, json and yaml (case-insensitive). Empty means
// text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatText:
		return fmt.Errorf("text format requires a specific formatter")
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// ExtractSummary is what `mailctl extract` prints.
type ExtractSummary struct {
	File      string   `json:"file" yaml:"file"`
	Emails    []string `json:"emails" yaml:"emails"`
	Count     int      `json:"count" yaml:"count"`
	TotalRows int      `json:"totalRows" yaml:"totalRows"`
}

// SendSummary is what `mailctl send` prints.
type SendSummary struct {
	Provider         string   `json:"provider" yaml:"provider"`
	Recipients       int      `json:"recipients" yaml:"recipients"`
	Successful       int      `json:"successful" yaml:"successful"`
	Failed           int      `json:"failed" yaml:"failed"`
	Batches          int      `json:"batches" yaml:"batches"`
	DurationMs       int64    `json:"durationMs" yaml:"durationMs"`
	FailedRecipients []string `json:"failedRecipients,omitempty" yaml:"failedRecipients,omitempty"`
}

// WriteAddressList prints one address per line.
func WriteAddressList(w io.Writer, emails []string) {
	for _, e := range emails {
		_, _ = fmt.Fprintln(w, e)
	}
}

// WriteSendTable prints the tally and, if any, the failed recipients.
func WriteSendTable(w io.Writer, s SendSummary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROVIDER\tRECIPIENTS\tSUCCESSFUL\tFAILED\tBATCHES\tDURATION")
	_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Provider, s.Recipients, s.Successful, s.Failed, s.Batches,
		(time.Duration(s.DurationMs) * time.Millisecond).String())
	_ = tw.Flush()
	if len(s.FailedRecipients) > 0 {
		_, _ = fmt.Fprintln(w, "\nFailed recipients:")
		for _, r := range s.FailedRecipients {
			_, _ = fmt.Fprintf(w, "  %s\n", r)
		}
	}
}
