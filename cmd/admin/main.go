// Package main provides admin management utilities for socialnet.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/database"
	"socialnet/internal/models"
	"socialnet/internal/repository"
	"socialnet/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// services is what every subcommand works against.
type services struct {
	users *service.UserService
	plans *service.PlanService
}

func newServices(db *gorm.DB) *services {
	store := repository.NewStore(db)
	plans := service.NewPlanService(store)
	return &services{users: service.NewUserService(store, plans), plans: plans}
}

func connect() (*services, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openServices(cfg)
}

// openServices connects to the database and to the Redis cache the server
// reads from, so plan changes drop the cached profiles it serves.
func openServices(cfg *config.Config) (*services, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cache.InitRedis(cfg.RedisURL)
	return newServices(db), nil
}

func newRootCmd(open func() (*services, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Manage socialnet plans and admins",
		Long:          "Maintenance commands for socialnet. <user> may be an id, a username or an email.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setPlanCmd := &cobra.Command{
		Use:   "set-plan <user> <plan> [badge]",
		Short: "Assign free|plus|pro and an optional badge",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			badge := ""
			if len(args) == 3 {
				badge = args[2]
			}
			return setPlan(cmd.Context(), cmd.OutOrStdout(), svc, args[0], args[1], badge)
		},
	}

	listAdminsCmd := &cobra.Command{
		Use:   "list-admins",
		Short: "List all admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			return listAdmins(cmd.Context(), cmd.OutOrStdout(), svc)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire every overdue plan now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := open()
			if err != nil {
				return err
			}
			n, err := svc.plans.ExpireDue(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d plan(s)\n", n)
			return nil
		},
	}

	rootCmd.AddCommand(setPlanCmd, listAdminsCmd, sweepCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd(connect).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setPlan(ctx context.Context, out io.Writer, svc *services, ref, plan, badge string) error {
	user, err := svc.users.ResolveUser(ctx, ref)
	if err != nil {
		return fmt.Errorf("user %s not found: %w", ref, err)
	}

	p, err := models.ParsePlan(plan)
	if err != nil {
		return err
	}

	updated, err := svc.plans.Assign(ctx, user.ID, p, models.Badge(badge), service.SourceCLI)
	if err != nil {
		return fmt.Errorf("failed to assign plan: %w", err)
	}

	expires := "never"
	if updated.PlanExpires != 0 {
		expires = fmt.Sprintf("%d", updated.PlanExpires)
	}
	fmt.Fprintf(out, "%s (%s) is now on %s, badge %q, %d credits, expires %s\n",
		updated.Username, updated.ID, updated.Plan, updated.Badge, updated.Credits, expires)
	return nil
}

func listAdmins(ctx context.Context, out io.Writer, svc *services) error {
	admins, err := svc.users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to query admins: %w", err)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admins found")
		return nil
	}

	fmt.Fprintln(out, "Admin users:")
	for _, a := range admins {
		fmt.Fprintf(out, "  %s  %s  %s\n", a.ID, a.Username, a.Email)
	}
	return nil
}
