package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kitchenops/backend/internal/domain"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a semicolon-separated sales file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := app.sales.ImportSalesCSV(cmd.Context(), f)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "imported: %d\nskipped: %d\n", summary.Imported, summary.Skipped)
		for _, re := range summary.Errors {
			fmt.Fprintf(out, "  line %d: %s\n", re.Line, re.Reason)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sales history as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := salesFilterFlags(cmd)
		if err != nil {
			return err
		}
		asXLSX, _ := cmd.Flags().GetBool("xlsx")
		path, _ := cmd.Flags().GetString("out")

		var w io.Writer = cmd.OutOrStdout()
		if path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		} else if asXLSX {
			return fmt.Errorf("--out is required with --xlsx")
		}

		if asXLSX {
			return app.sales.ExportSalesXLSX(cmd.Context(), w, filter)
		}
		return app.sales.ExportSalesCSV(cmd.Context(), w, filter)
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Generate and store a demand forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := itemFlags(cmd)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: --kind and --item are required", domain.ErrValidation)
		}
		start, err := dateFlag(cmd, "start")
		if err != nil {
			return err
		}
		end, err := dateFlag(cmd, "end")
		if err != nil {
			return err
		}
		method, _ := cmd.Flags().GetString("method")
		seasonality, _ := cmd.Flags().GetBool("seasonality")
		period, _ := cmd.Flags().GetString("period")

		params := map[string]any{}
		if window, _ := cmd.Flags().GetInt("window"); window > 0 {
			params["window"] = window
		}

		fc, err := app.forecasts.GenerateForecast(cmd.Context(), domain.ForecastRequest{
			Item:           *item,
			StartDate:      start,
			EndDate:        end,
			Method:         domain.Method(method),
			UseSeasonality: seasonality,
			MethodParams:   params,
			PeriodOfDay:    period,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(fc)
	},
}

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "Inspect seasonal factors",
}

var factorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List seasonal factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := itemFlags(cmd)
		if err != nil {
			return err
		}
		global, _ := cmd.Flags().GetBool("global")
		factors, err := app.factors.ListFactors(cmd.Context(), domain.FactorFilter{Item: item, GlobalOnly: global})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMONTH\tWEEKDAY\tPERIOD\tEVENT\tSCOPE\tMULTIPLIER\tDESCRIPTION")
		for _, f := range factors {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%g\t%s\n",
				f.ID, optInt(f.Month), optInt(f.Weekday), optString(f.PeriodOfDay), optString(f.EventLabel),
				scope(f), f.Multiplier, f.Description)
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, forecastCmd, factorsListCmd} {
		c.Flags().String("kind", "", "item kind (menu_item or dish)")
		c.Flags().Int64("item", 0, "item id")
	}

	exportCmd.Flags().String("from", "", "first sale date (YYYY-MM-DD)")
	exportCmd.Flags().String("to", "", "last sale date (YYYY-MM-DD)")
	exportCmd.Flags().String("period", "", "period of day")
	exportCmd.Flags().Bool("xlsx", false, "write an XLSX workbook instead of CSV")
	exportCmd.Flags().String("out", "", "output file (default stdout)")

	forecastCmd.Flags().String("start", "", "first forecast date (YYYY-MM-DD)")
	forecastCmd.Flags().String("end", "", "last forecast date (YYYY-MM-DD)")
	forecastCmd.Flags().String("method", string(domain.MethodMovingAverage), "moving_average, linear_regression or seasonality_hybrid")
	forecastCmd.Flags().Bool("seasonality", false, "apply seasonal factors")
	forecastCmd.Flags().Int("window", 0, "moving average window")
	forecastCmd.Flags().String("period", "", "period of day")

	factorsListCmd.Flags().Bool("global", false, "only factors without an item or category scope")
	factorsCmd.AddCommand(factorsListCmd)
}

func itemFlags(cmd *cobra.Command) (*domain.ItemRef, error) {
	kind, _ := cmd.Flags().GetString("kind")
	id, _ := cmd.Flags().GetInt64("item")
	if kind == "" && id == 0 {
		return nil, nil
	}
	k, err := domain.ParseItemKind(kind)
	if err != nil {
		return nil, err
	}
	ref := domain.ItemRef{Kind: k, ID: id}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &ref, nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: --%s is required", domain.ErrValidation, name)
	}
	return domain.ParseDate(s)
}

func salesFilterFlags(cmd *cobra.Command) (domain.SalesFilter, error) {
	var filter domain.SalesFilter
	item, err := itemFlags(cmd)
	if err != nil {
		return filter, err
	}
	filter.Item = item
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if s, _ := cmd.Flags().GetString(name); s != "" {
			d, err := domain.ParseDate(s)
			if err != nil {
				return filter, err
			}
			*dst = &d
		}
	}
	filter.PeriodOfDay, _ = cmd.Flags().GetString("period")
	return filter, nil
}

func scope(f domain.SeasonalFactor) string {
	switch {
	case f.MenuItemID != nil:
		return domain.MenuItem(*f.MenuItemID).String()
	case f.DishID != nil:
		return domain.Dish(*f.DishID).String()
	case f.CategoryID != nil:
		return "category:" + strconv.FormatInt(*f.CategoryID, 10)
	}
	return "global"
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
