package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omnis/kiosk/internal/answer"
)

func newFAQCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Manage the local question and answer list",
	}

	var question, reply, keywords string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a question and its answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			faq, err := env.OpenFAQ(env.Config)
			if err != nil {
				return fmt.Errorf("open faq: %w", err)
			}
			defer faq.Close()
			var kw []string
			if keywords != "" {
				kw = strings.Split(keywords, ",")
			}
			e, err := faq.Add(cmd.Context(), question, reply, kw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s [%s]\n", e.ID, strings.Join(e.Keywords, " "))
			return nil
		},
	}
	add.Flags().StringVarP(&question, "question", "q", "", "Question as visitors would ask it")
	add.Flags().StringVarP(&reply, "answer", "a", "", "Answer to speak")
	add.Flags().StringVarP(&keywords, "keywords", "k", "", "Comma-separated keywords (default: derived from the question)")
	_ = add.MarkFlagRequired("question")
	_ = add.MarkFlagRequired("answer")

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			faq, err := env.OpenFAQ(env.Config)
			if err != nil {
				return fmt.Errorf("open faq: %w", err)
			}
			defer faq.Close()
			entries, err := faq.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if entries == nil {
					entries = []answer.Entry{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tQUESTION\tKEYWORDS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Question, strings.Join(e.Keywords, " "))
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			faq, err := env.OpenFAQ(env.Config)
			if err != nil {
				return fmt.Errorf("open faq: %w", err)
			}
			defer faq.Close()
			if err := faq.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	ask := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Show what the local list would answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			faq, err := env.OpenFAQ(env.Config)
			if err != nil {
				return fmt.Errorf("open faq: %w", err)
			}
			defer faq.Close()
			text, ok := faq.Lookup(cmd.Context(), strings.Join(args, " "))
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no local match; the kiosk would ask the remote backend")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.AddCommand(add, list, rm, ask)
	return cmd
}
