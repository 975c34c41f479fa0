package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

func newTagCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tag [file...]",
		Short: "Caption and label local image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make([]tagging.Upload, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(filepath.Clean(path))
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				uploads = append(uploads, tagging.Upload{Filename: filepath.Base(path), Data: data})
			}

			a, _, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tagged, err := a.Tagging.Tag(cmd.Context(), uploads)
			if err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}
			views := make([]tagView, len(tagged))
			for i, t := range tagged {
				views[i] = tagView{Filename: t.Filename, Tags: t.Tags, Captions: t.Captions, ImageSize: t.ImageSize}
			}
			return printJSON(cmd, views)
		},
	}
}

type tagView struct {
	Filename  string   `json:"filename"`
	Tags      []string `json:"tags"`
	Captions  []string `json:"captions"`
	ImageSize int      `json:"image_size"`
}
