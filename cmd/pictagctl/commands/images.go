package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

type imageView struct {
	ID        int64    `json:"id"`
	URL       string   `json:"url"`
	Filename  string   `json:"filename"`
	Tags      []string `json:"tags"`
	Captions  []string `json:"captions"`
	Timestamp string   `json:"timestamp"`
}

func toView(r *domimage.Record) imageView {
	return imageView{
		ID:        r.ID(),
		URL:       r.URL(),
		Filename:  r.Filename(),
		Tags:      r.Tags(),
		Captions:  r.Captions(),
		Timestamp: r.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func newImagesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage stored image records",
	}
	cmd.AddCommand(
		newImagesAddCommand(opts),
		newImagesListCommand(opts),
		newImagesGetCommand(opts),
		newImagesDeleteCommand(opts),
	)
	return cmd
}

func newImagesAddCommand(opts *rootOptions) *cobra.Command {
	var d domimage.Draft

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store an image record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := a.Images.Create(cmd.Context(), d)
			if err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}
			return printJSON(cmd, toView(&rec))
		},
	}
	cmd.Flags().StringVar(&d.URL, "url", "", "Image URL")
	cmd.Flags().StringVar(&d.Filename, "filename", "", "Original file name")
	cmd.Flags().StringSliceVar(&d.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringArrayVar(&d.Captions, "caption", nil, "Caption (repeatable)")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

func newImagesListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored image records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			recs, err := a.Images.List(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}
			views := make([]imageView, len(recs))
			for i := range recs {
				views[i] = toView(&recs[i])
			}
			return printJSON(cmd, views)
		},
	}
}

func newImagesGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one image record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, _, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := a.Images.Get(cmd.Context(), id)
			if err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}
			return printJSON(cmd, toView(&rec))
		},
	}
}

func newImagesDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an image record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, _, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Images.Delete(cmd.Context(), id); err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid image id %q", s)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
