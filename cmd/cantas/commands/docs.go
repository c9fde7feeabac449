package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/inspect"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/printer"
	"github.com/dyluth/cantas/internal/timespec"
	"github.com/dyluth/cantas/pkg/board"
)

var (
	docsInstanceName string
	docsOutputFormat string
	docsWhere        []string
	docsSince        string
	docsUntil        string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect stored documents",
	Long: `Inspect the documents stored in an instance.

Entity type names are matched case-insensitively, so "card" and "Card"
are the same type.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List documents of a type",
	Long: `List the documents of one entity type, oldest first.

Output Formats:
  default - Table with short ID, summary, age and archived flag
  jsonl   - Serialized documents, one JSON object per line

Examples:
  # All cards
  cantas docs list card

  # Archived cards of one board created in the last day
  cantas docs list card --where boardId=<board-id> --where isArchived=true --since 24h

  # Users as JSON
  cantas docs list user --output=jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runDocsList,
}

var docsGetCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Show one document",
	Long: `Show one serialized document as indented JSON.

The identifier may be shortened to any unique prefix of at least 6
characters.

Examples:
  cantas docs get board 3f2a9c`,
	Args: cobra.ExactArgs(2),
	RunE: runDocsGet,
}

func init() {
	docsCmd.PersistentFlags().StringVarP(&docsInstanceName, "name", "n", "", "Local instance started by 'cantas up' (defaults to cantas.yml)")
	docsListCmd.Flags().StringVarP(&docsOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	docsListCmd.Flags().StringArrayVar(&docsWhere, "where", nil, "Exact field match as field=value (repeatable)")
	docsListCmd.Flags().StringVar(&docsSince, "since", "", "Created after: duration ago (1h, 30m) or RFC3339 time")
	docsListCmd.Flags().StringVar(&docsUntil, "until", "", "Created before: duration ago or RFC3339 time")
	docsCmd.AddCommand(docsListCmd, docsGetCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	format := inspect.OutputFormat(docsOutputFormat)
	if format != inspect.OutputFormatDefault && format != inspect.OutputFormatJSONL {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", docsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	if _, err := inspect.LookupType(args[0]); err != nil {
		return typeError(args[0])
	}

	now := time.Now()
	since, until, err := timespec.ParseRange(docsSince, docsUntil, now)
	if err != nil {
		return printer.Error(
			"invalid time range",
			err.Error(),
			[]string{"Use a duration such as 1h or 30m, or an RFC3339 time"},
		)
	}
	where, err := inspect.ParseWhere(docsWhere)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, closeFn, err := openDocsService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	filters := &inspect.FilterCriteria{Where: where, Since: since, Until: until}
	return inspect.List(ctx, svc, args[0], format, filters, cmd.OutOrStdout(), now)
}

func runDocsGet(cmd *cobra.Command, args []string) error {
	if _, err := inspect.LookupType(args[0]); err != nil {
		return typeError(args[0])
	}

	ctx := cmd.Context()
	svc, closeFn, err := openDocsService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	err = inspect.Get(ctx, svc, args[0], args[1], cmd.OutOrStdout())
	var amb *inspect.AmbiguousError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &amb):
		return printer.Error(
			fmt.Sprintf("ambiguous ID '%s'", args[1]),
			amb.Explain(),
			[]string{"Use a longer prefix or the full identifier"},
		)
	case board.IsNotFound(err):
		return printer.Error(
			fmt.Sprintf("%s '%s' not found", args[0], args[1]),
			"No document has that identifier or prefix.",
			[]string{fmt.Sprintf("List the documents:\n  cantas docs list %s", args[0])},
		)
	default:
		return err
	}
}

func openDocsService(ctx context.Context) (*models.Service, func(), error) {
	if docsInstanceName != "" {
		client, err := openLocalInstance(ctx, docsInstanceName)
		if err != nil {
			return nil, nil, err
		}
		return models.NewService(board.NewRepository(client)), func() { client.Close() }, nil
	}
	_, svc, closeFn, err := openService(ctx)
	return svc, closeFn, err
}

func typeError(name string) error {
	var names []string
	for _, t := range models.Catalog().Types() {
		if !t.Embedded {
			names = append(names, t.Name)
		}
	}
	return printer.Error(
		fmt.Sprintf("unknown entity type '%s'", name),
		"The type is not part of the Cantas catalog.",
		[]string{"Known types: " + strings.Join(names, ", ")},
	)
}
