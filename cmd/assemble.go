package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
)

var (
	assembleBrands   []string
	assembleKeywords []string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <budget>",
	Short: "Assemble a PC build for a budget without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid budget %q: %w", args[0], err)
		}

		cfg, logger, err := loadConfig(false)
		if err != nil {
			return err
		}
		opts, err := assemblyOptions(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, closeCatalog, err := loadCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeCatalog()

		assembler := assembly.New(search.NewEngine(store, logger), assembly.NewMemoryStore(), opts, logger)
		b, err := assembler.Compose(ctx, assembly.Request{
			Budget:   budget,
			Keywords: assembleKeywords,
			Brands:   assembleBrands,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tALLOCATED\tSKU\tPRICE\tNAME")
		for _, s := range models.Slots {
			allocated := assistant.Money(assembly.Allocation(budget, s))
			p, ok := b.Part(s)
			if !ok {
				fmt.Fprintf(w, "%s\t%s\t-\t-\tnot found\n", s, allocated)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s, allocated, p.SKU, assistant.Money(p.Price), p.Name)
		}
		fmt.Fprintf(w, "TOTAL\t%s\t\t%s\t\n", assistant.Money(budget), assistant.Money(b.Total))
		return w.Flush()
	},
}

func init() {
	assembleCmd.Flags().StringSliceVar(&assembleBrands, "brand", nil, "preferred brands")
	assembleCmd.Flags().StringSliceVar(&assembleKeywords, "keyword", nil, "extra search keywords")
	rootCmd.AddCommand(assembleCmd)
}
