package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/bootstrap"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change settings",
	Long: `Inspect the settings schema and read or write values in the configured
database. User settings need --user, organization settings need --org.

Examples:
  saasgate settings schema
  saasgate settings list --user u1 --org acme
  saasgate settings get theme --user u1
  saasgate settings set seats 25 --org acme
  saasgate settings set theme null --user u1   # reset to the default`,
}

var settingsSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "List every declared setting",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSchema,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the settings visible to the given owners",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a setting value",
	Long: `Set a setting value. The value is parsed as JSON when it is valid JSON
and taken as a plain string otherwise; "null" resets the setting.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var (
	settingsUser string
	settingsOrg  string
	settingsShow bool
)

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.AddCommand(settingsSchemaCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsCmd.PersistentFlags().StringVar(&settingsUser, "user", "", "user id owning user settings")
	settingsCmd.PersistentFlags().StringVar(&settingsOrg, "org", "", "organization id owning organization settings")
	settingsGetCmd.Flags().BoolVar(&settingsShow, "show-sensitive", false, "print sensitive values unmasked")
}

func settingsScope() settings.Scope {
	return settings.Scope{UserID: settingsUser, OrganizationID: settingsOrg}
}

// withSettings opens the application and hands fn a server registry built
// the same way an HTTP request builds one.
func withSettings(cmd *cobra.Command, fn func(ctx context.Context, a *bootstrap.App, reg *filter.Registry[filter.Server]) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	reg, err := a.ServerRegistry()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	return fn(cmd.Context(), a, reg)
}

func runSettingsSchema(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(ctx context.Context, a *bootstrap.App, reg *filter.Registry[filter.Server]) error {
		schema, err := a.Settings.ResolveSchema(ctx, reg, settingsScope())
		if err != nil {
			return fmt.Errorf("resolve schema: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFRAGMENT\tFIELD")
		fmt.Fprintln(w, "----\t--------\t-----")
		for _, name := range schema.Names() {
			field, _ := schema.Field(name)
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, schema.Source(name), field.Describe())
		}
		return w.Flush()
	})
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(ctx context.Context, a *bootstrap.App, reg *filter.Registry[filter.Server]) error {
		values, err := a.Settings.Values(ctx, reg, settingsScope())
		if err != nil {
			return fmt.Errorf("list settings: %w", err)
		}
		if len(values) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No settings visible; pass --user and/or --org.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVALUE\tSTORAGE\tDEFAULT")
		fmt.Fprintln(w, "----\t-----\t-------\t-------")
		for _, v := range values {
			v = v.Masked()
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", v.Name, formatValue(v.Value), v.Storage, v.Default)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		undeclared, err := a.Settings.Undeclared(ctx, reg, settingsScope())
		if err != nil {
			return fmt.Errorf("list stored settings: %w", err)
		}
		if len(undeclared) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Stored but no longer declared:")
			for _, k := range undeclared {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s, updated %s)\n", k.Name, k.Storage, k.UpdatedAt.Format(time.RFC3339))
			}
		}
		return nil
	})
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(ctx context.Context, a *bootstrap.App, reg *filter.Registry[filter.Server]) error {
		v, err := a.Settings.GetValue(ctx, reg, settingsScope(), args[0])
		if err != nil {
			return err
		}
		if !settingsShow {
			v = v.Masked()
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(v.Value))
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(ctx context.Context, a *bootstrap.App, reg *filter.Registry[filter.Server]) error {
		schema, err := a.Settings.ResolveSchema(ctx, reg, settingsScope())
		if err != nil {
			return err
		}
		field, err := schema.Lookup(args[0])
		if err != nil {
			return err
		}
		v, err := a.Settings.SetValue(ctx, reg, settingsScope(), args[0], parseValue(field, args[1]))
		if err != nil {
			return err
		}
		printSet(cmd, v)
		return nil
	})
}

func printSet(cmd *cobra.Command, v app.Value) {
	if v.Default {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Reset %s to %s\n", checkMark, v.Name, formatValue(v.Masked().Value))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s = %s\n", checkMark, v.Name, formatValue(v.Masked().Value))
}

// parseValue converts a command-line argument for field. "null" resets.
// Text fields take the argument verbatim unless it is a quoted JSON string;
// other fields read it as a JSON literal and fall back to the raw string.
func parseValue(field settings.Field, s string) any {
	if s == "null" {
		return nil
	}
	switch field.Type {
	case settings.TypeString, settings.TypeEnum, settings.TypeEmail, settings.TypeURL:
		var str string
		if strings.HasPrefix(s, `"`) && json.Unmarshal([]byte(s), &str) == nil {
			return str
		}
		return s
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
