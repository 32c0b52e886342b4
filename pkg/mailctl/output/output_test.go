/*
SPDX-FileCopyrightText: 2025 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("table")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestWriteObject(t *testing.T) {
	summary := ExtractSummary{File: "a.csv", Emails: []string{"a@x.com"}, Count: 1, TotalRows: 3}

	var buf bytes.Buffer
	require.NoError(t, WriteObject(&buf, FormatJSON, summary))
	var fromJSON ExtractSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, summary, fromJSON)

	buf.Reset()
	require.NoError(t, WriteObject(&buf, FormatYAML, summary))
	var fromYAML ExtractSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, summary, fromYAML)
	assert.Contains(t, buf.String(), "totalRows: 3")

	assert.Error(t, WriteObject(&buf, FormatText, summary))
	assert.Error(t, WriteObject(&buf, Format("xml"), summary))
}

func TestWriteAddressList(t *testing.T) {
	var buf bytes.Buffer
	WriteAddressList(&buf, []string{"a@x.com", "b@x.com"})
	assert.Equal(t, "a@x.com\nb@x.com\n", buf.String())
}

func TestWriteSendTable(t *testing.T) {
	var buf bytes.Buffer
	WriteSendTable(&buf, SendSummary{
		Provider: "smtp", Recipients: 5, Successful: 3, Failed: 2, Batches: 1, DurationMs: 1500,
		FailedRecipients: []string{"x@y.com", "z@y.com"},
	})
	out := buf.String()
	assert.Contains(t, out, "PROVIDER")
	assert.Contains(t, out, "smtp")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "Failed recipients:\n  x@y.com\n  z@y.com\n")

	buf.Reset()
	WriteSendTable(&buf, SendSummary{Provider: "log", Recipients: 1, Successful: 1, Batches: 1})
	assert.NotContains(t, buf.String(), "Failed recipients")
}
