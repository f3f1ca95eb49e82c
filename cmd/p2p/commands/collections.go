package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// NewCollectionCommand creates the collection command.
func NewCollectionCommand() *cobra.Command {
	var (
		limitItems        int
		includeSuppressed bool
		forceUpdate       bool
	)

	cmd := &cobra.Command{
		Use:   "collection CODE",
		Short: "Show a collection's layout",
		Long:  "Fetch a collection layout with its member content items and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			client, err := createClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			layout, err := client.Collections().GetFancy(ctx, code, &p2p.FancyCollectionOptions{
				LimitItems:        limitItems,
				IncludeSuppressed: includeSuppressed,
				ForceUpdate:       forceUpdate,
			})
			if err != nil {
				return fmt.Errorf("failed to get collection: %w", err)
			}

			output := viper.GetString("output")
			if output == OutputFormatJSON || output == OutputFormatYAML {
				return renderRecord(layout)
			}

			fmt.Printf("Collection: %s\n", layout.Code())

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("#", "Slug", "Title", "State")

			for i, item := range layout.Records("items") {
				member := item.Record("content_item")
				if member == nil {
					_ = table.Append(strconv.Itoa(i+1), item.Slug(), "", "")

					continue
				}

				_ = table.Append(
					strconv.Itoa(i+1),
					member.Slug(),
					member.Str("title"),
					member.Str("content_item_state_code"),
				)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			if viper.GetBool("verbose") {
				printCacheStats(client.Cache())
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limitItems, "limit", 0, "maximum number of items to show (0 for the default)")
	cmd.Flags().BoolVar(&includeSuppressed, "include-suppressed", false, "keep suppressed members in the listing")
	cmd.Flags().BoolVar(&forceUpdate, "force-update", false, "revalidate cached entries against the API")

	return cmd
}

func printCacheStats(store *p2p.Store) {
	stats := store.Stats()
	if len(stats) == 0 {
		return
	}

	fmt.Println("\nCache stats:")

	for entity, counts := range stats {
		fmt.Printf("  %s: %d gets, %d hits\n", entity, counts.Gets, counts.Hits)
	}
}
