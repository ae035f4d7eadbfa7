package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"text2sql-console/internal/parser"
)

func newParseCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse <kind> [file|-]",
		Short: "Parse a saved backend response offline",
		Long: fmt.Sprintf(`Parse a backend response text without contacting the backend.

kind is one of: %s. The text is read from file, or from stdin when
file is "-" or omitted.`, strings.Join(parser.Kinds, ", ")),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: parser.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 2 {
				source = args[1]
			}
			text, err := readSource(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}
			return runParse(cmd.OutOrStdout(), args[0], text, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func readSource(stdin io.Reader, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func runParse(w io.Writer, kind, text, output string) error {
	result, ok := parser.Run(kind, text)
	if !ok {
		return fmt.Errorf("unknown parse kind %q, expected one of: %s", kind, strings.Join(parser.Kinds, ", "))
	}

	switch output {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(result)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(result); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}
