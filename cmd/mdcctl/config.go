package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/mdcctl/internal/config"
	"github.com/muurk/mdcctl/internal/session"
)

var actionsFormat string

func init() {
	actionsCmd.Flags().StringVar(&actionsFormat, "format", "text", "Output format (text, json)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(setDisplayCmd)
	configCmd.AddCommand(useDisplayCmd)
	configCmd.AddCommand(removeDisplayCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(actionsCmd)
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the action, feedback and preset catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if actionsFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"actions":   session.Actions(),
				"feedbacks": session.Feedbacks(),
				"presets":   session.Presets(),
			})
		}
		writeCatalog(out)
		return nil
	},
}

func writeCatalog(w io.Writer) {
	fmt.Fprintln(w, "Actions:")
	for _, a := range session.Actions() {
		fmt.Fprintf(w, "  %-20s %s\n", a.ID, a.Name)
		for _, o := range a.Options {
			fmt.Fprintf(w, "      %s: %s\n", o.ID, describeOption(o))
		}
	}

	fmt.Fprintln(w, "\nFeedbacks:")
	for _, f := range session.Feedbacks() {
		fmt.Fprintf(w, "  %-20s %s (%s)\n", f.ID, f.Name, f.Category)
	}

	fmt.Fprintln(w, "\nPresets:")
	for _, p := range session.Presets() {
		fmt.Fprintf(w, "  %-20s %s %v\n", p.Name, p.ActionID, p.Options)
	}
}

func describeOption(o session.Option) string {
	if o.Type == session.OptionNumber {
		return fmt.Sprintf("%d-%d (default %d)", o.Min, o.Max, o.Default)
	}
	labels := make([]string, 0, len(o.Choices))
	for _, c := range o.Choices {
		labels = append(labels, fmt.Sprintf("0x%02x=%s", c.ID, c.Label))
	}
	return fmt.Sprintf("%s (default 0x%02x)", strings.Join(labels, ", "), o.Default)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved displays",
	Long: `Manage the display registry stored at the user config directory
(for example ~/.config/mdcctl/config.yaml).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		path, _ := config.GetConfigPath()
		writeRegistry(cmd.OutOrStdout(), path, reg)
		return nil
	},
}

func writeRegistry(w io.Writer, path string, reg *config.Registry) {
	fmt.Fprintf(w, "Config file: %s\n\n", path)
	names := reg.DisplayNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "No displays saved. Add one with 'mdcctl config set-display <name> <host>'.")
	}
	for _, name := range names {
		d := reg.Displays[name]
		marker := " "
		if name == reg.Default {
			marker = "*"
		}
		addr := session.Config{Host: d.Host, Port: d.Port}.Addr()
		last := "never"
		if !d.LastConnected.IsZero() {
			last = d.LastConnected.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %-16s %-22s device %-3d last connected %s\n", marker, name, addr, d.DeviceNumber, last)
	}

	p := reg.Preferences
	fmt.Fprintf(w, "\nCommand interval: %s\n", p.CommandInterval())
	fmt.Fprintf(w, "Connect timeout:  %s\n", p.ConnectTimeout())
	if p != nil && p.LogLevel != "" {
		fmt.Fprintf(w, "Log level:        %s\n", p.LogLevel)
	}
	if p != nil && p.LogFile != "" {
		fmt.Fprintf(w, "Log file:         %s\n", p.LogFile)
	}
}

var setDisplayCmd = &cobra.Command{
	Use:   "set-display <name> <host>",
	Short: "Add or update a display",
	Args:  cobra.ExactArgs(2),
	Example: `  mdcctl config set-display lobby 10.0.0.5
  mdcctl config set-display wall-left 10.0.0.20 --device-id 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		number := deviceIDFlag
		if number < 0 {
			number = config.DefaultDeviceNumber
		}
		return updateRegistry(func(reg *config.Registry) error {
			return reg.SetDisplay(args[0], &config.Display{
				Host:         args[1],
				DeviceNumber: number,
				Port:         portFlag,
			})
		})
	},
}

var useDisplayCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateRegistry(func(reg *config.Registry) error {
			return reg.UseDisplay(args[0])
		})
	},
}

var removeDisplayCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateRegistry(func(reg *config.Registry) error {
			return reg.RemoveDisplay(args[0])
		})
	},
}

func updateRegistry(fn func(*config.Registry) error) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return reg.Save()
}
