package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/cli"
	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/workbook"
)

func newWorkbookCommand() *cobra.Command {
	var (
		owner     string
		profileID string
		storedID  string
		request   workbook.Request
	)

	cmd := &cobra.Command{
		Use:   "workbook",
		Short: "Generate a workbook and check the child's answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if storedID == "" {
				if err := request.Validate(); err != nil {
					return err
				}
			}
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}

			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				ctx := cmd.Context()
				var stored *workbook.Workbook
				if storedID != "" {
					record, err := deps.contents.Load(ctx, storedID, ownerID)
					if err != nil {
						return err
					}
					if stored, err = workbook.Decode(record); err != nil {
						return err
					}
					profileID = record.ProfileID
				}

				app, err := deps.appContext(ctx, ownerID, profileID)
				if err != nil {
					return err
				}
				generator, err := workbook.NewGenerator(app)
				if err != nil {
					return err
				}
				workbookCLI := cli.NewWorkbookCLI(generator, request, stored)
				return workbookCLI.Run(ctx, workbookCLI)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().StringVar(&profileID, "profile", "", "Child profile id (optional when the owner has one child)")
	cmd.Flags().StringVar(&storedID, "id", "", "Check answers of a stored workbook instead of generating one")
	cmd.Flags().StringVar(&request.Description, "description", "", "What the workbook should practice")
	cmd.Flags().IntVar(&request.NumExercises, "exercises", 10, fmt.Sprintf("Number of exercises (1-%d)", workbook.MaxExercises))
	cmd.Flags().StringVar(&request.Subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&request.Topic, "topic", "", "Topic")
	return cmd
}
