package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/search"
)

var (
	searchBrands     []string
	searchCategories []string
	searchMaxPrice   string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(false)
		if err != nil {
			return err
		}

		filters := search.Filters{Brand: searchBrands, Category: searchCategories}
		if searchMaxPrice != "" {
			limit, err := decimal.NewFromString(searchMaxPrice)
			if err != nil {
				return fmt.Errorf("invalid --max-price %q: %w", searchMaxPrice, err)
			}
			filters.MaxPrice = &limit
		}

		ctx := context.Background()
		store, closeCatalog, err := loadCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeCatalog()

		found, err := search.NewEngine(store, logger).Search(ctx, strings.Join(args, " "), filters, searchLimit)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "nothing found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tSKU\tPRICE\tSTOCK\tNAME")
		for _, c := range found {
			stock := "-"
			if c.Stock != nil {
				stock = fmt.Sprint(*c.Stock)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Score, c.SKU, assistant.Money(c.Price), stock, c.Name)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchBrands, "brand", nil, "only these brands")
	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "only these categories")
	searchCmd.Flags().StringVar(&searchMaxPrice, "max-price", "", "upper price bound")
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
