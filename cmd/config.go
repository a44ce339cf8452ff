package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// envBinding maps a flag to the environment variable consulted when the
// flag was not set on the command line.
type envBinding struct {
	flag string
	env  string
}

// applyEnvFallbacks sets every unchanged flag from its environment variable.
// Empty variables are ignored.
func applyEnvFallbacks(cmd *cobra.Command, bindings []envBinding) error {
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil || f.Changed {
			continue
		}
		v := strings.TrimSpace(os.Getenv(b.env))
		if v == "" {
			continue
		}
		if err := f.Value.Set(v); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", v, b.env, err)
		}
	}
	return nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
