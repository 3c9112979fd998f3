package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// ConfigOverrides collects the flags the user set explicitly, keyed like the config file.
func ConfigOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := make(map[string]any)
	flags := cmd.Flags()

	if flags.Changed("provider") {
		provider, err := OptionalStringFlag(cmd, "provider")
		if err != nil {
			return nil, err
		}
		overrides["llm.provider"] = provider
	}
	if flags.Changed("model") {
		model, err := OptionalStringFlag(cmd, "model")
		if err != nil {
			return nil, err
		}
		overrides["llm.model"] = model
	}
	if flags.Changed("concurrency") {
		concurrency, err := flags.GetInt("concurrency")
		if err != nil {
			return nil, fmt.Errorf("failed to read --concurrency flag: %w", err)
		}
		overrides["concurrency"] = concurrency
	}
	if flags.Changed("no-outline") {
		noOutline, err := OptionalBoolFlag(cmd, "no-outline")
		if err != nil {
			return nil, err
		}
		overrides["outline"] = !noOutline
	}

	return overrides, nil
}
