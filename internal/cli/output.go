package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// maskPlaceholder is printed in place of masked values.
const maskPlaceholder = "***"

// actionResult is the JSON output of commands that change the store.
type actionResult struct {
	Application string `json:"application"`
	Action      string `json:"action"`
	Properties  int    `json:"properties,omitempty"`
}

// namesResult is the JSON output of list and search.
type namesResult struct {
	Applications []string `json:"applications"`
}

// existsResult is the JSON output of exists.
type existsResult struct {
	Application string `json:"application"`
	Exists      bool   `json:"exists"`
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printApplication writes app as labelled text. Masked values are replaced
// unless reveal is set.
func printApplication(w io.Writer, app *types.Application, reveal bool) {
	fmt.Fprintf(w, "%-15s%s\n", "Name:", app.Name)
	fmt.Fprintf(w, "%-15s%s\n", "Description:", app.Description)
	fmt.Fprintf(w, "%-15s%s\n", "Contact:", app.ContactInfo)
	fmt.Fprintf(w, "%-15s%s\n", "User account:", app.UserAccount)
	fmt.Fprintf(w, "%-15s%s\n", "Admin account:", app.AdminAccount)
	fmt.Fprintf(w, "%-15s%t\n", "Enabled:", app.Flags.Has(types.FlagEnabled))
	fmt.Fprintln(w, "Properties:")
	for _, p := range app.Properties.Properties() {
		value := p.Value
		if p.Masked && !reveal {
			value = maskPlaceholder
		}
		fmt.Fprintf(w, "  %s = %s\n", p.Key, value)
	}
}

func printNames(w io.Writer, jsonMode bool, names []string) error {
	if jsonMode {
		if names == nil {
			names = []string{}
		}
		return printJSON(w, namesResult{Applications: names})
	}
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}

// printAction reports a completed change.
func printAction(w io.Writer, jsonMode bool, res actionResult) error {
	if jsonMode {
		return printJSON(w, res)
	}
	if res.Properties > 0 {
		_, err := fmt.Fprintf(w, "%s %s (%d properties)\n", res.Action, res.Application, res.Properties)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", res.Action, res.Application)
	return err
}
