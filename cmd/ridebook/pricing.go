package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ridebook/internal/modules/pricing"
)

var (
	quoteTier  int
	quoteKm    float64
	quoteModel string
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List vehicle tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		tiers, err := catalog().Tiers(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRATE/KM\tSEATS")
		for _, t := range tiers {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\n", t.ID, t.DisplayName, t.RatePerKm, t.Capacity)
		}
		return w.Flush()
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a tier over a distance",
	RunE: func(cmd *cobra.Command, args []string) error {
		model := quoteModel
		if model == "" {
			model = cfg.Pricing.Model
		}
		engine, err := pricing.NewEngine(model)
		if err != nil {
			return err
		}
		q, err := pricing.NewService(catalog(), engine).Estimate(cmd.Context(), quoteTier, &quoteKm)
		if err != nil {
			return err
		}
		if q == nil {
			return fmt.Errorf("tier %d cannot price %.2f km with the %s model", quoteTier, quoteKm, model)
		}
		return printJSON(cmd, q)
	},
}

func init() {
	quoteCmd.Flags().IntVar(&quoteTier, "tier", 1, "Vehicle tier id")
	quoteCmd.Flags().Float64Var(&quoteKm, "km", 0, "Distance in kilometers")
	quoteCmd.Flags().StringVar(&quoteModel, "model", "", "Pricing model: flat or bracketed (default from RIDEBOOK_PRICING_MODEL)")
}

// catalog is the built-in tier list. The CLI does not read the database.
func catalog() pricing.Catalog {
	return pricing.NewStaticCatalog(pricing.DefaultTiers())
}
