package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gofhir/disorder"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// ResolveOutput is the JSON form of one resolved identifier.
type ResolveOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

type resolveOptions struct {
	format  string
	timeout time.Duration
}

func newResolveCmd(g *globalOptions) *cobra.Command {
	o := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Resolve identifiers to display names",
		Example: `  disorder resolve --endpoint 'https://vocab.example.org/disorders/{code}' 190685 MIM:219700
  disorder resolve --mode fhir --endpoint https://tx.example.org/fhir MONDO:0008608
  disorder resolve --codesystem omim.json --format json 190685`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, g, o, args)
		},
	}

	cmd.Flags().StringVarP(&o.format, "format", "o", string(OutputText), "output format: text or json")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "overall deadline for all lookups (0 = none)")
	return cmd
}

func runResolve(cmd *cobra.Command, g *globalOptions, o *resolveOptions, ids []string) error {
	format := OutputFormat(strings.ToLower(o.format))
	if format != OutputText && format != OutputJSON {
		return fmt.Errorf("unknown output format %q", o.format)
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	log := g.newLogger(cfg, cmd.ErrOrStderr())
	vocab, err := g.loadVocabulary(log)
	if err != nil {
		return err
	}
	svc, err := g.newService(cfg, vocab, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	// Every identifier gets its own Ref; lookups run concurrently and
	// repeated codes share a request.
	refs := make([]*disorder.Ref, len(ids))
	done := make([]<-chan struct{}, len(ids))
	started := make([]time.Time, len(ids))
	for i, id := range ids {
		refs[i] = svc.NewRef(id, "", nil)
		started[i] = time.Now()
		done[i] = refs[i].Resolve(ctx, nil)
	}

	outputs := make([]ResolveOutput, len(ids))
	failed := 0
	for i, r := range refs {
		<-done[i]
		outputs[i] = ResolveOutput{
			ID:       r.ID(),
			Name:     r.Name(),
			State:    r.State().String(),
			Duration: time.Since(started[i]).Round(time.Microsecond).String(),
		}
		if err := r.Err(); err != nil {
			outputs[i].Error = err.Error()
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if format == OutputJSON {
		if err := writeJSONOutput(out, outputs); err != nil {
			return err
		}
	} else {
		printTextOutput(out, outputs)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookup(s) failed", failed, len(ids))
	}
	return nil
}

func writeJSONOutput(w io.Writer, outputs []ResolveOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}

func printTextOutput(w io.Writer, outputs []ResolveOutput) {
	for _, o := range outputs {
		if o.Error != "" {
			fmt.Fprintf(w, "%s\t%s\t(%s: %s)\n", o.ID, o.Name, o.State, o.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", o.ID, o.Name)
	}
}
