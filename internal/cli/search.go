package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/search"
)

type searchOptions struct {
	filters property.Filters
	pages   int
	save    bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [location]",
		Short: "Search available listings",
		Long: `Search available listings. Results come 12 to a page; --pages reveals more.

Examples:
  sr search Lekki --bedrooms 2 --max-price 2000000
  sr search --type duplex --amenity pool --sort price_asc --save`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.filters.Location = strings.Join(args, " ")
			}
			if opts.pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				return runSearch(ctx, e, opts)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.filters.PropertyType, "type", "", "property type")
	f.Float64Var(&opts.filters.MinPrice, "min-price", 0, "minimum monthly rent")
	f.Float64Var(&opts.filters.MaxPrice, "max-price", 0, "maximum monthly rent")
	f.IntVar(&opts.filters.Bedrooms, "bedrooms", 0, "minimum bedrooms")
	f.IntVar(&opts.filters.Bathrooms, "bathrooms", 0, "minimum bathrooms")
	f.StringArrayVar(&opts.filters.Amenities, "amenity", nil, "required amenity (repeatable)")
	f.StringVar(&opts.filters.SortBy, "sort", property.SortNewest, "newest|price_asc|price_desc")
	f.IntVar(&opts.pages, "pages", 1, "pages of results to show")
	f.BoolVar(&opts.save, "save", false, "save this search to your history")

	cmd.AddCommand(newSearchHistoryCmd(), newSuggestCmd(), newPopularCmd())
	return cmd
}

// searchSession opens a search session for the signed-in user, or an
// anonymous one.
func searchSession(ctx context.Context, e *env) (*search.Service, error) {
	uid := "anonymous"
	if u, err := e.user(ctx); err == nil {
		uid = u.ID
	}
	return e.app.Search(uid, e.path)
}

type searchResult struct {
	Results []property.Card  `json:"results"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
	Filters property.Filters `json:"filters"`
}

func runSearch(ctx context.Context, e *env, opts searchOptions) error {
	svc, err := searchSession(ctx, e)
	if err != nil {
		return err
	}

	visible := svc.Search(ctx, opts.filters)
	for i := 1; i < opts.pages && svc.HasMore(); i++ {
		visible = svc.LoadMore()
	}
	if opts.save {
		svc.SaveSearch(ctx)
	}

	res := searchResult{
		Results: property.Cards(visible),
		Total:   svc.Total(),
		HasMore: svc.HasMore(),
		Filters: svc.Filters(),
	}
	return e.emit(res, func(w io.Writer) error {
		if err := printPropertyTable(w, res.Results); err != nil {
			return err
		}
		if res.HasMore {
			fmt.Fprintf(w, "Showing %d of %d. Use --pages %d for more.\n", len(res.Results), res.Total, opts.pages+1)
		}
		return nil
	})
}

// describeFilters renders the non-default filters of a saved search.
func describeFilters(f property.Filters) string {
	var parts []string
	if f.Location != "" {
		parts = append(parts, f.Location)
	}
	if f.PropertyType != "" {
		parts = append(parts, f.PropertyType)
	}
	if f.Bedrooms > 0 {
		parts = append(parts, fmt.Sprintf("%d+ beds", f.Bedrooms))
	}
	if f.Bathrooms > 0 {
		parts = append(parts, fmt.Sprintf("%d+ baths", f.Bathrooms))
	}
	switch {
	case f.MinPrice > 0 && f.MaxPrice > 0:
		parts = append(parts, format.Naira(f.MinPrice)+"–"+format.Naira(f.MaxPrice))
	case f.MinPrice > 0:
		parts = append(parts, "from "+format.Naira(f.MinPrice))
	case f.MaxPrice > 0:
		parts = append(parts, "up to "+format.Naira(f.MaxPrice))
	}
	if len(f.Amenities) > 0 {
		parts = append(parts, strings.Join(f.Amenities, "+"))
	}
	if len(parts) == 0 {
		return "all properties"
	}
	return strings.Join(parts, ", ")
}

func newSearchHistoryCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				svc, err := searchSession(ctx, e)
				if err != nil {
					return err
				}
				if clear {
					if err := svc.ClearHistory(ctx); err != nil {
						return err
					}
					_, err := fmt.Fprintln(e.out, "Search history cleared.")
					return err
				}

				entries := svc.History(ctx)
				return e.emit(entries, func(w io.Writer) error {
					if len(entries) == 0 {
						_, err := fmt.Fprintln(w, "No saved searches.")
						return err
					}
					for _, en := range entries {
						fmt.Fprintf(w, "[%s] %s\n", format.DateTime(en.Timestamp), describeFilters(en.Filters))
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "forget every saved search")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <text>",
		Short: "Suggest locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := search.Suggestions(strings.Join(args, " "))
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), list)
			}
			for _, s := range list {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newPopularCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "popular",
		Short: "Show popular searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := search.PopularSearches()
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), list)
			}
			t := newTable(cmd.OutOrStdout(), "SEARCH", "COUNT")
			for _, p := range list {
				t.row(p.Term, fmt.Sprint(p.Count))
			}
			return t.flush()
		},
	}
}
