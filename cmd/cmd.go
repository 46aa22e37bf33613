package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ardanlabs/delayload/envconfig"
	"github.com/ardanlabs/delayload/generator"
	"github.com/ardanlabs/delayload/parser"
	"github.com/ardanlabs/delayload/parser/clangast"
)

// SourceFunc builds the declaration source used for every header of a run
// from the collected compiler arguments.
type SourceFunc func(clangArgs []string) parser.Source

func clangSource(clangArgs []string) parser.Source {
	return clangast.Source{Args: clangArgs}
}

func NewCLI() *cobra.Command {
	return newCLI(clangSource)
}

func newCLI(source SourceFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "delayload",
		Short: "Generate delay-loaded bindings for C headers",
		Long: "Extract the exported functions of one or more C headers and generate a C++ source\n" +
			"file whose forwarding functions load the named shared library on first use.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateHandler(cmd, source)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringArrayP("header", "H", nil, "Header file to wrap (repeatable)")
	pf.StringArray("clang-arg", nil, "Argument passed to libclang (repeatable)")
	pf.Bool("allow-reserved", false, "Keep functions whose name starts with an underscore")
	pf.Bool("allow-cxx", false, "Keep declarations that are not plain C")
	pf.Bool("skip-system-headers", false, "Drop declarations that come from system headers")
	_ = rootCmd.MarkPersistentFlagRequired("header")

	f := rootCmd.Flags()
	f.StringP("output", "o", "", "Path of the generated source file")
	f.StringP("library", "l", "", "Library to load, e.g. 'mylib', 'mylib.dll' or 'libmylib.so'")
	f.Bool("system-dir-only", false, "Only load the library from the system directory")
	f.String("strategy", "lazy", "Symbol resolution strategy: lazy or table")
	f.String("on-duplicate", "reject", "Handling of a function declared by several headers: reject or first")
	f.Bool("no-timestamp", false, "Omit the generation timestamp")
	_ = rootCmd.MarkFlagRequired("output")
	_ = rootCmd.MarkFlagRequired("library")

	symbolsCmd := &cobra.Command{
		Use:     "symbols",
		Aliases: []string{"ls"},
		Short:   "List the functions that would be wrapped",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return symbolsHandler(cmd, source)
		},
	}

	rootCmd.AddCommand(symbolsCmd)

	appendEnvDocs(rootCmd, envconfig.AsMap())

	return rootCmd
}

func appendEnvDocs(cmd *cobra.Command, envs map[string]envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	keys := make([]string, 0, len(envs))
	for k := range envs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	envUsage := `
Environment Variables:
`
	for _, k := range keys {
		e := envs[k]
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func generateHandler(cmd *cobra.Command, source SourceFunc) error {
	flags := cmd.Flags()

	output, err := flags.GetString("output")
	if err != nil {
		return err
	}
	library, err := flags.GetString("library")
	if err != nil {
		return err
	}
	systemDirOnly, err := flags.GetBool("system-dir-only")
	if err != nil {
		return err
	}
	noTimestamp, err := flags.GetBool("no-timestamp")
	if err != nil {
		return err
	}

	s, err := flags.GetString("strategy")
	if err != nil {
		return err
	}
	strategy, err := generator.ParseStrategy(s)
	if err != nil {
		return err
	}

	d, err := flags.GetString("on-duplicate")
	if err != nil {
		return err
	}
	duplicates, err := generator.ParseDuplicatePolicy(d)
	if err != nil {
		return err
	}

	if strings.TrimSpace(output) == "" {
		return fmt.Errorf("%w: empty output path", generator.ErrInvalidInput)
	}

	opts := generator.Options{
		Library:       library,
		SystemDirOnly: systemDirOnly,
		Strategy:      strategy,
		Duplicates:    duplicates,
	}
	if !noTimestamp {
		opts.Now = envconfig.Clock()
	}

	headers, err := extractHeaders(cmd, source)
	if err != nil {
		return err
	}

	doc, err := generator.New(opts).Generate(headers)
	if err != nil {
		return err
	}

	if err := generator.WriteFile(output, doc); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s (%d symbols)\n", output, doc.Symbols)

	return nil
}

func symbolsHandler(cmd *cobra.Command, source SourceFunc) error {
	headers, err := extractHeaders(cmd, source)
	if err != nil {
		return err
	}

	var data [][]string
	for _, h := range headers {
		for _, fn := range h.Functions {
			data = append(data, []string{fn.Name, fn.ResultType, strings.Join(fn.Params, ", "), fn.CallingConv.String(), h.Name})
		}
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "RETURNS", "PARAMETERS", "CONVENTION", "HEADER"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// extractHeaders runs the extractor over every --header in order. The first
// failure aborts the run.
func extractHeaders(cmd *cobra.Command, source SourceFunc) ([]parser.Header, error) {
	flags := cmd.Flags()

	paths, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no headers", generator.ErrInvalidInput)
	}

	clangArgs, err := flags.GetStringArray("clang-arg")
	if err != nil {
		return nil, err
	}
	clangArgs = append(clangArgs, envconfig.ClangArgs...)

	policy := parser.DefaultPolicy()
	if allow, _ := flags.GetBool("allow-reserved"); allow {
		policy.ExcludeReserved = false
	}
	if allow, _ := flags.GetBool("allow-cxx"); allow {
		policy.RequireC = false
	}
	if skip, _ := flags.GetBool("skip-system-headers"); skip {
		policy.SkipSystemHeaders = true
	}

	extractor := parser.New(source(clangArgs), policy)

	headers := make([]parser.Header, 0, len(paths))
	for _, path := range paths {
		functions, err := extractor.Extract(path)
		if err != nil {
			return nil, err
		}
		headers = append(headers, parser.Header{
			Name:      generator.BaseNameOf(path),
			Functions: functions,
		})
	}

	return headers, nil
}
