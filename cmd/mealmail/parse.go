package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var (
		subject   string
		sender    string
		showTrace bool
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse one confirmation email and print the enhanced order as JSON",
		Long: `parse reads a saved email (an .eml export or a bare HTML/text body) and
prints the enhanced order. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			email := readRawEmail(data)
			if subject != "" {
				email.Subject = subject
			}
			if sender != "" {
				email.Sender = sender
			}

			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			order, procErr := a.Orders.ProcessEmail(cmd.Context(), email)

			if showTrace {
				enc := json.NewEncoder(cmd.ErrOrStderr())
				for _, e := range a.Trace.Events() {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
			}
			if procErr != nil {
				return procErr
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(order)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject line, overrides the file's Subject header")
	cmd.Flags().StringVar(&sender, "sender", "", "Sender address, overrides the file's From header")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Write heuristic trace events to stderr as JSON lines")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
