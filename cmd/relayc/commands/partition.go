package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/born-ml/relay/contrib/ncnn"
	"github.com/born-ml/relay/loader"
)

// NewPartitionCommand builds the `relayc partition` subcommand.
func NewPartitionCommand() *cobra.Command {
	var (
		graphPath string
		backend   string
		dotPath   string
		emitDir   string
	)
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition a graph for an offload backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backend != ncnn.Target {
				return fmt.Errorf("unknown backend %q (supported: %s)", backend, ncnn.Target)
			}
			g, err := loader.DecodeFile(graphPath)
			if err != nil {
				return err
			}
			prog, err := ncnn.Partition(g, nil)
			if err != nil {
				return err
			}

			cmd.Printf("extracted %d function(s)\n", len(prog.Functions))
			for _, fn := range prog.Functions {
				cmd.Printf("  %s (target %s, %d nodes)\n", fn.Name, fn.Target, fn.Body.NumNodes())
			}

			if dotPath != "" {
				if err := os.WriteFile(dotPath, []byte(prog.Main.DumpGraphviz()), 0o644); err != nil {
					return err
				}
			}
			if emitDir != "" {
				if err := os.MkdirAll(emitDir, 0o755); err != nil {
					return err
				}
				for _, fn := range prog.Functions {
					blob, err := ncnn.Codegen(fn)
					if err != nil {
						return err
					}
					out := filepath.Join(emitDir, fn.Name+".json")
					if err := os.WriteFile(out, blob, 0o644); err != nil {
						return err
					}
					cmd.Printf("wrote %s\n", out)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "", "YAML graph description (required)")
	cmd.Flags().StringVar(&backend, "backend", ncnn.Target, "offload backend")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the partitioned main graph in DOT format")
	cmd.Flags().StringVar(&emitDir, "emit-json", "", "write one JSON graph per extracted function into this directory")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}
