package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
)

type backendOpener func(ctx context.Context) (*storage.Backend, error)

type createFlags struct {
	bride          string
	groom          string
	date           string
	venueName      string
	venueAddress   string
	mapLink        string
	primaryColor   string
	secondaryColor string
	inactive       bool
}

func newRootCommand(open backendOpener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "provision",
		Short:        "Create wedding tenants and toggle their activity",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newCreateCommand(open),
		newSetActiveCommand(open, "activate", true),
		newSetActiveCommand(open, "deactivate", false),
		newShowCommand(open),
	)
	return root
}

func newCreateCommand(open backendOpener) *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create <slug>",
		Short: "Create a tenant configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := open(cmd.Context())
			if err != nil {
				return err
			}

			cfg := &models.TenantConfig{
				ID:          args[0],
				BrideName:   f.bride,
				GroomName:   f.groom,
				WeddingDate: f.date,
				Venue: models.Venue{
					Name:    f.venueName,
					Address: f.venueAddress,
					MapLink: f.mapLink,
				},
				IsActive: !f.inactive,
			}
			if f.primaryColor != "" || f.secondaryColor != "" {
				cfg.Theme = &models.Theme{PrimaryColor: f.primaryColor, SecondaryColor: f.secondaryColor}
			}

			if err := backend.Provisioner.Create(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tenant %s (active=%t) on %s backend\n", cfg.ID, cfg.IsActive, backend.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.bride, "bride", "", "Bride's name")
	cmd.Flags().StringVar(&f.groom, "groom", "", "Groom's name")
	cmd.Flags().StringVar(&f.date, "date", "", "Wedding date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.venueName, "venue-name", "", "Venue name")
	cmd.Flags().StringVar(&f.venueAddress, "venue-address", "", "Venue address")
	cmd.Flags().StringVar(&f.mapLink, "map-link", "", "Venue map link")
	cmd.Flags().StringVar(&f.primaryColor, "primary-color", "", "Theme primary color")
	cmd.Flags().StringVar(&f.secondaryColor, "secondary-color", "", "Theme secondary color")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "Create the tenant deactivated")
	cmd.MarkFlagRequired("bride")
	cmd.MarkFlagRequired("groom")
	cmd.MarkFlagRequired("date")

	return cmd
}

func newSetActiveCommand(open backendOpener, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug>",
		Short: fmt.Sprintf("Set isActive=%t on a tenant", active),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if err := backend.Provisioner.SetActive(cmd.Context(), args[0], active); err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s isActive=%t\n", args[0], active)
			return nil
		},
	}
}

type showOutput struct {
	ResolvedID string               `json:"resolvedId"`
	Active     bool                 `json:"active"`
	Config     *models.TenantConfig `json:"config"`
	Summary    models.Summary       `json:"summary"`
}

func newShowCommand(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Print a tenant's configuration and RSVP counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			slug := args[0]

			backend, err := open(ctx)
			if err != nil {
				return err
			}

			rec, err := backend.Registry.Lookup(ctx, slug)
			if err != nil {
				return err
			}
			if !rec.Found {
				return fmt.Errorf("tenant %s: %w", slug, storage.ErrConfigNotFound)
			}

			cfg, err := backend.Configs.Get(ctx, slug)
			if err != nil {
				return err
			}
			records, err := backend.Records.ReadAll(ctx, rec.ResolvedID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(showOutput{
				ResolvedID: rec.ResolvedID,
				Active:     rec.Active,
				Config:     cfg,
				Summary:    models.Summarize(records),
			})
		},
	}
}
