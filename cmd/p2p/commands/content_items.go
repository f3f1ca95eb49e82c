package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		field       string
		forceUpdate bool
	)

	cmd := &cobra.Command{
		Use:   "get SLUG",
		Short: "Fetch a content item",
		Long:  "Fetch a content item by slug and print it, or a single field of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]

			client, err := createClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			item, err := client.ContentItems().Get(ctx, slug, &p2p.GetOptions{ForceUpdate: forceUpdate})
			if err != nil {
				return fmt.Errorf("failed to get content item: %w", err)
			}

			if field != "" {
				value, ok := item[field]
				if !ok {
					return fmt.Errorf("%w: %s", ErrFieldNotFound, field)
				}

				fmt.Println(value)

				return nil
			}

			return renderRecord(item)
		},
	}

	cmd.Flags().StringVarP(&field, "field", "f", "", "print a single field instead of the whole item")
	cmd.Flags().BoolVar(&forceUpdate, "force-update", false, "revalidate the cached copy against the API")

	return cmd
}

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	var (
		bodyFile string
		typeCode string
		title    string
		state    string
	)

	cmd := &cobra.Command{
		Use:   "save SLUG",
		Short: "Create or update a content item",
		Long:  "Create a content item, or update it if the slug already exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			if slug == "" {
				return ErrSlugRequired
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			item := p2p.Record{"slug": slug}

			if bodyFile != "" {
				body, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("reading body file: %w", err)
				}

				item["body"] = string(body)
			}

			if typeCode != "" {
				item["content_item_type_code"] = typeCode
			}

			if title != "" {
				item["title"] = title
			}

			if state != "" {
				item["content_item_state_code"] = state
			}

			ctx := context.Background()

			saved, created, err := client.ContentItems().CreateOrUpdate(ctx, item)
			if err != nil {
				return fmt.Errorf("failed to save content item: %w", err)
			}

			if created {
				fmt.Printf("Created content item '%s'\n", slug)
			} else {
				fmt.Printf("Updated content item '%s'\n", slug)
			}

			return renderRecord(saved)
		},
	}

	cmd.Flags().StringVarP(&bodyFile, "from-file", "F", "", "file to read the item body from")
	cmd.Flags().StringVar(&typeCode, "type-code", "blurb", "content item type code")
	cmd.Flags().StringVar(&title, "title", "", "content item title")
	cmd.Flags().StringVar(&state, "state", "", "content item state code")

	return cmd
}

// NewMoveCommand creates the mv command.
func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv SLUG NEW_SLUG",
		Short: "Rename a content item",
		Long:  "Move a content item to a new slug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, newSlug := args[0], args[1]

			client, err := createClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			_, err = client.ContentItems().UpdateSlug(ctx, slug, p2p.Record{"slug": newSlug})
			if err != nil {
				return fmt.Errorf("failed to rename content item: %w", err)
			}

			fmt.Printf("Moved '%s' to '%s'\n", slug, newSlug)

			return nil
		},
	}
}
