package main

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reoring/schemair"
	"github.com/reoring/schemair/internal/graph"
	"github.com/reoring/schemair/ir"
)

func newCompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Print the ordered IR of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := schemair.Load(data)
			if err != nil {
				return err
			}
			opts, err := a.cfg.options()
			if err != nil {
				return err
			}
			res, err := schemair.Compile(cmd.Context(), doc, opts)
			if err != nil {
				return err
			}
			var out []byte
			if a.cfg.Format == "yaml" {
				out, err = yaml.Marshal(ir.Dump(res.Schemas))
			} else {
				out, err = ir.MarshalJSON(res.Schemas)
			}
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
}

func newNormalizeCmd(a *app) *cobra.Command {
	var skipEnsure bool
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the document after allOf merge and discriminator ensure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := schemair.Load(data)
			if err != nil {
				return err
			}
			opts, err := a.cfg.options()
			if err != nil {
				return err
			}
			opts.SkipEnsure = skipEnsure
			norm, warnings, err := schemair.Normalize(doc, opts)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				opts.Logger.Warn(w)
			}
			var out []byte
			if a.cfg.Format == "yaml" {
				out, err = norm.EncodeYAML()
			} else {
				out, err = norm.MarshalJSON()
			}
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().BoolVar(&skipEnsure, "skip-ensure", false, "only merge allOf")
	return cmd
}

// graphReport is the output of the graph subcommand.
type graphReport struct {
	Nodes    []graphNode `json:"nodes" yaml:"nodes"`
	Circular []string    `json:"circular" yaml:"circular"`
}

type graphNode struct {
	Name     string   `json:"name" yaml:"name"`
	ID       string   `json:"id" yaml:"id"`
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

func newGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [file]",
		Short: "Print component dependencies and the circular set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := schemair.Load(data)
			if err != nil {
				return err
			}
			opts, err := a.cfg.options()
			if err != nil {
				return err
			}
			norm, _, err := schemair.Normalize(doc, opts)
			if err != nil {
				return err
			}
			g, err := graph.Build(norm)
			if err != nil {
				return err
			}
			out, err := a.encode(report(g))
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
}

func report(g *graph.Graph) graphReport {
	r := graphReport{Circular: []string{}}
	for _, n := range g.Nodes() {
		gn := graphNode{Name: n.Name, ID: string(n.ID)}
		for _, c := range n.Children {
			gn.Children = append(gn.Children, c.Last())
		}
		r.Nodes = append(r.Nodes, gn)
	}
	for _, p := range g.Circular() {
		r.Circular = append(r.Circular, p.Last())
	}
	return r
}

func (a *app) encode(v any) ([]byte, error) {
	if a.cfg.Format == "yaml" {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
