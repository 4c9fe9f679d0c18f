package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/cli"
	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/plan"
)

func newPlanCommand() *cobra.Command {
	var (
		owner     string
		profileID string
		subject   string
		topic     string
		goal      string
		resumeID  string
		imagesDir string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a ten step learning plan with the AI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resumeID == "" && (subject == "" || topic == "") {
				return fmt.Errorf("--subject and --topic, or --resume, are required")
			}
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}

			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				ctx := cmd.Context()
				var sess *plan.Session
				if resumeID != "" {
					record, err := deps.contents.Load(ctx, resumeID, ownerID)
					if err != nil {
						return err
					}
					app, err := deps.appContext(ctx, ownerID, record.ProfileID)
					if err != nil {
						return err
					}
					if sess, err = plan.Resume(app, record); err != nil {
						return err
					}
				} else {
					app, err := deps.appContext(ctx, ownerID, profileID)
					if err != nil {
						return err
					}
					if sess, err = plan.New(app, subject, topic, goal); err != nil {
						return err
					}
				}

				current := sess.Plan()
				fmt.Fprintf(cmd.OutOrStdout(), "%s / %s: %d of %d steps\n\n", current.Subject, current.Topic, len(current.Steps), plan.TotalSteps)
				planCLI := cli.NewPlanCLI(sess, cli.NewImageWriter(imagesDir))
				return planCLI.Run(ctx, planCLI)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().StringVar(&profileID, "profile", "", "Child profile id (optional when the owner has one child)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject of a new plan, e.g. math")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic of a new plan")
	cmd.Flags().StringVar(&goal, "goal", "", "What the child should reach by the end of the plan")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Continue a stored plan")
	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory to save worksheet illustrations to")

	cmd.AddCommand(newPlanTopicsCommand())
	return cmd
}

func newPlanTopicsCommand() *cobra.Command {
	var (
		owner     string
		profileID string
		subject   string
	)

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Suggest plan topics within a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}

			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				ctx := cmd.Context()
				app, err := deps.appContext(ctx, ownerID, profileID)
				if err != nil {
					return err
				}
				topics, err := plan.SuggestTopics(ctx, app, subject)
				if len(topics) == 0 {
					return err
				}
				for _, suggestion := range topics {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s: %s\n", suggestion.Topic, suggestion.Description)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().StringVar(&profileID, "profile", "", "Child profile id (optional when the owner has one child)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject to suggest topics for")
	return cmd
}
