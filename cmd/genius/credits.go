package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/credit"
)

func newCreditsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Credit balance and cost commands",
	}
	cmd.AddCommand(newCreditsBalanceCommand())
	cmd.AddCommand(newCreditsGrantCommand())
	cmd.AddCommand(newCreditsCostsCommand())
	return cmd
}

func newCreditsBalanceCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the owner's credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				balance, err := deps.ledger.Balance(cmd.Context(), ownerID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d credits\n", ownerID, balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	return cmd
}

func newCreditsGrantCommand() *cobra.Command {
	var (
		owner  string
		amount int
	)
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Add credits to the owner's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}
			ownerID, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				balance, err := deps.ledger.Grant(cmd.Context(), ownerID, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits, %s now has %d\n", amount, ownerID, balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (defaults to "+ownerEnv+")")
	cmd.Flags().IntVar(&amount, "amount", 0, "Credits to add")
	return cmd
}

func newCreditsCostsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "costs",
		Short: "Show the cost of each paid operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(func(_ *config.Config, deps *dependencies) error {
				costs, err := deps.ledger.Costs(cmd.Context())
				if err != nil {
					return err
				}
				printCosts(cmd, costs)
				return nil
			})
		},
	}
}

func printCosts(cmd *cobra.Command, costs credit.CostTable) {
	kinds := make([]string, 0, len(costs))
	for kind := range costs {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", kind, costs[credit.Kind(kind)])
	}
}
