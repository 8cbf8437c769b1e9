package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/martinemde/genbridge/builtin"
	"github.com/martinemde/genbridge/chain"
	"github.com/martinemde/genbridge/genai"
	"github.com/martinemde/genbridge/serialize"
	"github.com/martinemde/genbridge/store"
)

// tokenAuth signs requests with the bearer token in GENBRIDGE_AUTH_TOKEN.
func tokenAuth() (genai.Auth, error) {
	token := os.Getenv("GENBRIDGE_AUTH_TOKEN")
	if token == "" {
		return genai.Auth{}, errors.New("GENBRIDGE_AUTH_TOKEN is not set")
	}
	return genai.Auth{Signer: genai.SignerFunc(func(r *http.Request) error {
		r.Header.Set("Authorization", "Bearer "+token)
		return nil
	})}, nil
}

type generateFlags struct {
	component string
	graph     string
	prompt    string
	stop      []string
	n         int
	vars      map[string]string
}

// resolveNode finds the graph by config component name, or else by store
// name.
func resolveNode(ctx context.Context, cfg *cliConfig, f generateFlags) (*serialize.Node, error) {
	switch {
	case f.component != "":
		return cfg.file.Node(f.component)
	case f.graph != "":
		var n *serialize.Node
		err := withStore(cfg, func(s *store.Store) error {
			var err error
			n, err = s.Get(ctx, f.graph)
			return err
		})
		return n, err
	}
	return nil, errors.New("one of --component or --graph is required")
}

func runGenerate(ctx context.Context, cmd *cobra.Command, cfg *cliConfig, f generateFlags) error {
	n, err := resolveNode(ctx, cfg, f)
	if err != nil {
		return err
	}
	v, err := builtin.Load(n, builtin.WithAuthResolver(tokenAuth), builtin.WithLogger(cfg.logger))
	if err != nil {
		return err
	}
	var opts []genai.CallOption
	if len(f.stop) > 0 {
		opts = append(opts, genai.WithStop(f.stop))
	}
	out := cmd.OutOrStdout()

	switch c := v.(type) {
	case *chain.LLMChain:
		values := make(map[string]any, len(f.vars))
		for k, val := range f.vars {
			values[k] = val
		}
		res, err := c.Run(ctx, values, opts...)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(res))
		for k := range res {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(out, res[k])
		}
		return nil
	case genai.Adapter:
		if f.prompt == "" {
			return errors.New("--prompt is required for an adapter graph")
		}
		if f.n > 1 {
			texts, err := c.BatchGenerate(ctx, f.prompt, f.n, opts...)
			if err != nil {
				return err
			}
			for _, t := range texts {
				fmt.Fprintln(out, t)
			}
			return nil
		}
		text, err := c.Generate(ctx, f.prompt, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	}
	return fmt.Errorf("%s cannot generate", serialize.IDString(n.ID))
}

func generateCmd(cfg *cliConfig) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Load a graph and run one generation",
		Example: "  genbridge generate --config genbridge.yaml --component joke --prompt 'Tell me a joke.'\n" +
			"  genbridge generate --graph explain --var topic=gravity",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd, cfg, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.component, "component", "", "Config component name")
	fl.StringVar(&f.graph, "graph", "", "Stored graph name")
	fl.StringVarP(&f.prompt, "prompt", "p", "", "Prompt text for adapter graphs")
	fl.StringSliceVar(&f.stop, "stop", nil, "Stop words")
	fl.IntVarP(&f.n, "n", "n", 1, "Number of generations")
	fl.StringToStringVar(&f.vars, "var", nil, "Prompt variable for chain graphs, key=value")
	return cmd
}
