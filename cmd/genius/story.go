package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/cli"
	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/story"
)

func newStoryCommand() *cobra.Command {
	var (
		owner     string
		profileID string
		title     string
		resumeID  string
		imagesDir string
		style     story.Style
	)

	cmd := &cobra.Command{
		Use:   "story",
		Short: "Write an illustrated story together with the AI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && resumeID == "" {
				return fmt.Errorf("--title or --resume is required")
			}
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}

			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				ctx := cmd.Context()
				var sess *story.Session
				if resumeID != "" {
					record, err := deps.contents.Load(ctx, resumeID, ownerID)
					if err != nil {
						return err
					}
					app, err := deps.appContext(ctx, ownerID, record.ProfileID)
					if err != nil {
						return err
					}
					if sess, err = story.Resume(app, record); err != nil {
						return err
					}
				} else {
					app, err := deps.appContext(ctx, ownerID, profileID)
					if err != nil {
						return err
					}
					if sess, err = story.New(app, title, style); err != nil {
						return err
					}
				}

				current := sess.Story()
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d parts)\n\n", current.Title, len(current.Parts))
				storyCLI := cli.NewStoryCLI(sess, cli.NewImageWriter(imagesDir))
				return storyCLI.Run(ctx, storyCLI)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().StringVar(&profileID, "profile", "", "Child profile id (optional when the owner has one child)")
	cmd.Flags().StringVar(&title, "title", "", "Title of a new story")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Continue a stored story")
	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory to save illustrations to")
	cmd.Flags().StringVar(&style.ArtStyle, "art-style", "", "Illustration style, e.g. watercolor")
	cmd.Flags().StringVar(&style.Genre, "genre", "", "Story genre")
	cmd.Flags().StringVar(&style.Theme, "theme", "", "Story theme")
	cmd.Flags().StringVar(&style.Length, "length", "", "Length of each part: short, medium or long")
	cmd.Flags().StringVar(&style.Complexity, "complexity", "", "Language complexity")
	cmd.Flags().IntVar(&style.CharacterCount, "characters", 0, "Number of main characters")
	cmd.Flags().BoolVar(&style.IncludeDialogue, "dialogue", false, "Include dialogue")
	cmd.Flags().BoolVar(&style.Educational, "educational", false, "Weave an educational message into the story")
	return cmd
}
