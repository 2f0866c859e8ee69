package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/property"
)

func newPropertiesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "properties",
		Aliases: []string{"property", "p"},
		Short:   "Browse and manage listings",
		Long:    "Without a subcommand, lists featured listings: verified, available and newest first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				cards := property.Cards(e.app.Properties.Featured(ctx, limit))
				return e.emit(cards, func(w io.Writer) error { return printPropertyTable(w, cards) })
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", property.DefaultFeaturedLimit, "number of listings")

	cmd.AddCommand(
		newPropertyShowCmd(),
		newPropertyAddCmd(),
		newPropertyMineCmd(),
		newPropertyRemoveCmd(),
		newFavoriteCmd(),
		newUnfavoriteCmd(),
		newFavoritesCmd(),
		newVerifyCmd(),
		newAvailabilityCmd(),
	)
	return cmd
}

func newPropertyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show listing details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				p, err := e.app.Properties.Get(ctx, args[0])
				if err != nil {
					return err
				}

				viewer := ""
				if u, err := e.user(ctx); err == nil {
					viewer = u.ID
				}
				if err := e.app.Properties.RecordView(ctx, p.ID, viewer); err != nil {
					e.log.Warn("recording view", "property", p.ID, "error", err)
				}

				return e.emit(p, func(w io.Writer) error {
					printPropertySummary(w, *p)
					return nil
				})
			})
		},
	}
}

func newPropertyAddCmd() *cobra.Command {
	var in property.NewProperty

	cmd := &cobra.Command{
		Use:   "add",
		Short: "List a new property",
		Long: `List a new property. Agents and landlords own what they list; the listing
stays unverified until an admin approves it.

Types: apartment, house, condo, studio, duplex, townhouse, villa

Example:
  sr properties add --title "Lekki garden flat" --address "12 Admiralty Way, Lekki" \
    --price 1200000 --type apartment --bedrooms 2 --bathrooms 2 --amenity wifi --amenity parking`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				p, err := e.app.Properties.Create(ctx, uid, in)
				if err != nil {
					return err
				}
				return e.emit(p, func(w io.Writer) error {
					fmt.Fprintln(w, "Property listed. It will be featured once an admin verifies it.")
					printPropertySummary(w, *p)
					return nil
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "listing title")
	f.StringVar(&in.Description, "description", "", "longer description")
	f.StringVar(&in.Address, "address", "", "street address")
	f.Float64Var(&in.Price, "price", 0, "monthly rent in naira")
	f.IntVar(&in.Bedrooms, "bedrooms", 0, "number of bedrooms")
	f.IntVar(&in.Bathrooms, "bathrooms", 0, "number of bathrooms")
	f.IntVar(&in.AreaSqft, "area", 0, "floor area in square feet")
	f.StringVar(&in.PropertyType, "type", "", "property type")
	f.StringArrayVar(&in.Amenities, "amenity", nil, "amenity (repeatable)")
	f.StringArrayVar(&in.Images, "image", nil, "image URL (repeatable)")
	f.StringVar(&in.AgentID, "agent", "", "listing agent id (admins only)")
	f.StringVar(&in.LandlordID, "landlord", "", "landlord id (admins only)")

	return cmd
}

func newPropertyMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the properties you manage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				var list []property.Property
				switch e.app.Profiles.Role(ctx, uid) {
				case access.Agent:
					list, err = e.app.Properties.ByAgent(ctx, uid)
				case access.Landlord:
					list, err = e.app.Properties.ByLandlord(ctx, uid)
				default:
					return fmt.Errorf("only agents and landlords manage properties: %w", access.ErrForbidden)
				}
				if err != nil {
					return err
				}
				cards := property.Cards(list)
				return e.emit(cards, func(w io.Writer) error { return printPropertyTable(w, cards) })
			})
		},
	}
}

func newPropertyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Properties.Delete(ctx, uid, args[0]); err != nil {
					return err
				}
				return e.emit(map[string]any{"id": args[0], "deleted": true}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Property %s removed.\n", args[0])
					return err
				})
			})
		},
	}
}

func newFavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Save a listing to your favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Properties.AddFavorite(ctx, uid, args[0]); err != nil {
					return err
				}
				return e.emit(map[string]any{"property_id": args[0], "favorite": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Added to favorites.")
					return err
				})
			})
		},
	}
}

func newUnfavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfavorite <id>",
		Short: "Remove a listing from your favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Properties.RemoveFavorite(ctx, uid, args[0]); err != nil {
					return err
				}
				return e.emit(map[string]any{"property_id": args[0], "favorite": false}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Removed from favorites.")
					return err
				})
			})
		},
	}
}

func newFavoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List your favorite listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				list, err := e.app.Properties.Favorites(ctx, uid)
				if err != nil {
					return err
				}
				cards := property.Cards(list)
				return e.emit(cards, func(w io.Writer) error { return printPropertyTable(w, cards) })
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var reject bool

	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Approve or reject a listing (admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Properties.Verify(ctx, uid, args[0], !reject); err != nil {
					return err
				}
				return e.emit(map[string]any{"id": args[0], "verified": !reject}, func(w io.Writer) error {
					verdict := "approved"
					if reject {
						verdict = "rejected"
					}
					_, err := fmt.Fprintf(w, "Property %s %s.\n", args[0], verdict)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "reject instead of approving")
	return cmd
}

func newAvailabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available <id> <true|false>",
		Short: "Mark a listing available or rented",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			available, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid availability: %s (must be true or false)", args[1])
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				if err := e.app.Properties.SetAvailable(ctx, uid, args[0], available); err != nil {
					return err
				}
				return e.emit(map[string]any{"id": args[0], "available": available}, func(w io.Writer) error {
					state := "available"
					if !available {
						state = "rented"
					}
					_, err := fmt.Fprintf(w, "Property %s marked %s.\n", args[0], state)
					return err
				})
			})
		},
	}
}
