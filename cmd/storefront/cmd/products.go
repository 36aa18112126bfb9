package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.pilab.hu/storefront/api"
	"gopkg.in/yaml.v3"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Short:   "Browse and manage the product catalog",
	Aliases: []string{"product"},
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := application.API.ListProducts(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		if len(page.Content) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No products found.")
			return nil
		}
		return printYAML(cmd.OutOrStdout(), page.Content)
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := application.API.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		return printYAML(cmd.OutOrStdout(), product)
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := application.API.CreateProduct(cmd.Context(), productInputFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product %s created.\n", product.UUID)
		return nil
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		product, err := application.API.UpdateProduct(cmd.Context(), args[0], productInputFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return printYAML(cmd.OutOrStdout(), product)
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.API.DeleteProduct(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product %s deleted.\n", args[0])
		return nil
	},
}

func productInputFromFlags(cmd *cobra.Command) api.ProductInput {
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	stock, _ := cmd.Flags().GetInt("stock")
	priceIn, _ := cmd.Flags().GetFloat64("price-in")
	priceOut, _ := cmd.Flags().GetFloat64("price-out")
	thumbnail, _ := cmd.Flags().GetString("thumbnail")
	return api.NewProductInput(name, description, stock, priceIn, priceOut, thumbnail)
}

func addProductFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "product name")
	cmd.Flags().String("description", "", "product description")
	cmd.Flags().Int("stock", 0, "stock quantity")
	cmd.Flags().Float64("price-in", 0, "purchase price")
	cmd.Flags().Float64("price-out", 0, "sale price")
	cmd.Flags().String("thumbnail", "", "thumbnail image URL")
}

func printYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd, productsGetCmd, productsCreateCmd, productsUpdateCmd, productsDeleteCmd)
	addProductFlags(productsCreateCmd)
	addProductFlags(productsUpdateCmd)
}
