package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"josephlewis.net/gosh/core/profile"
)

var profileRaw bool

// profileCmd groups the profile store inspection commands
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect the profile store.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the profiles in the store.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		registry, err := profile.Load(configuration.ProfilesFs(), "/")
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(registry))
		for id := range registry {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a profile's effective configuration.",
	Long: `Shows the profile after overlaying its parents and interpolating
${key} references. Use --raw to see the stored profile instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		registry, err := profile.Load(configuration.ProfilesFs(), "/")
		if err != nil {
			return err
		}

		p, ok := registry[args[0]]
		if !ok {
			return &profile.MissingProfileError{ID: args[0]}
		}

		if !profileRaw {
			p, err = profile.Overlay(p, registry, configuration.Environment)
			if err != nil {
				return err
			}
			p = profile.NewInterpolator(p, []profile.Resolver{envResolver}, true).Apply()
		}

		printProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

// envResolver substitutes env:NAME references from the process
// environment.
var envResolver = profile.ResolverFunc{
	Name: "env",
	Fn: func(p *profile.Profile, pid, key, value string) (string, bool) {
		return os.Getenv(value), true
	},
}

func printProfile(w io.Writer, p *profile.Profile) {
	for _, pid := range p.ConfigNames() {
		fmt.Fprintf(w, "%s:\n", pid)

		cfg := p.Config(pid)
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s\n", k, cfg[k])
		}
	}

	for _, name := range p.FileNames() {
		fmt.Fprintf(w, "file: %s (%d bytes)\n", name, len(p.File(name)))
	}
}

func init() {
	profileShowCmd.Flags().BoolVar(&profileRaw, "raw", false, "show the stored profile without overlay or interpolation")
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
