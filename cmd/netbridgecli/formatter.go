package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/veesix-networks/netbridge/internal/lease"
)

type OutputFormat string

const (
	FormatCLI  OutputFormat = "cli"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Format(data any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return f.formatJSON(data)
	case FormatYAML:
		return f.formatYAML(data)
	case FormatCLI:
		return f.formatCLI(data)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (f *Formatter) formatJSON(data any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatYAML goes through JSON first so field names follow the API's
// json tags.
func (f *Formatter) formatYAML(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (f *Formatter) formatCLI(data any) (string, error) {
	sessions, ok := data.([]lease.Session)
	if !ok {
		return f.formatYAML(data)
	}
	if len(sessions) == 0 {
		return "No active sessions\n", nil
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FAMILY\tINTERFACE\tADDRESS\tSESSION\tLEASE\tUPDATED")
	for _, s := range sessions {
		addr := fmt.Sprintf("%s/%d", s.Result.IPAddress, s.Result.PrefixLength)
		session := s.SessionID
		if len(session) > 16 {
			session = session[:16] + "..."
		}
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%ds\t%s\n",
			s.Family, s.Interface, addr, session, s.Result.LeaseDurationSeconds,
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
