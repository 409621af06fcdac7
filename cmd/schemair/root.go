package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	cfg        *config
	configPath string
	out        string
}

// newRootCmd creates and returns the root command.
func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	cmd := &cobra.Command{
		Use:   "schemair",
		Short: "Compile bundled OpenAPI / JSON-Schema documents into an ordered IR",
		Long: `schemair resolves a bundled OpenAPI or JSON-Schema document into a
canonical, cycle-safe intermediate representation ordered so that every
type follows the types it references.

Configuration is read from ./schemair.yaml (or --config), overridden by
SCHEMAIR_* environment variables and then by flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./schemair.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.StringP("format", "f", "", "output format: json or yaml")
	pf.StringSlice("component", nil, "component to compile (repeatable; default all)")
	pf.StringVarP(&a.out, "output", "o", "", "output file (default stdout)")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("output.format", pf.Lookup("format"))
	_ = a.v.BindPFlag("components", pf.Lookup("component"))

	cmd.AddCommand(newCompileCmd(a), newNormalizeCmd(a), newGraphCmd(a))
	return cmd
}

// readInput reads the document named by args, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

// write sends data to --output, creating its directory, or to stdout.
func (a *app) write(cmd *cobra.Command, data []byte) error {
	if a.out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.out), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(a.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a.out, err)
	}
	return nil
}
