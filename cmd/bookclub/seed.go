package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookclub/internal/core"
	"bookclub/pkg/domain"
)

// seedFile is the layout accepted by the seed command. Entries are decoded
// with the domain map decoders so missing fields are reported by name.
type seedFile struct {
	People      []map[string]any `json:"people"`
	Clubs       []map[string]any `json:"clubs"`
	Memberships []struct {
		UserID string `json:"userId"`
		ClubID string `json:"clubId"`
	} `json:"memberships"`
}

type seedSummary struct {
	People      int
	Clubs       int
	Memberships int
}

func newSeedCommand(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load people, clubs and memberships from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return c.fail("read seed file", err)
			}
			var data seedFile
			if err := json.Unmarshal(raw, &data); err != nil {
				return c.fail("decode seed file", err)
			}
			svc, closeStore, err := c.openService(cmd.Context(), nil, nil)
			if err != nil {
				return c.fail("open store", err)
			}
			defer closeStore()
			summary, err := seed(cmd.Context(), svc, data)
			if err != nil {
				return c.fail("seed", err)
			}
			fmt.Fprintf(c.stdout, "seeded %d people, %d clubs, %d memberships\n", summary.People, summary.Clubs, summary.Memberships)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seed.json", "seed file path")
	return cmd
}

func seed(ctx context.Context, svc *core.Service, data seedFile) (seedSummary, error) {
	var (
		summary seedSummary
		ids     = domain.UUIDGenerator{}
	)
	for i, m := range data.People {
		person, err := domain.PersonFromMap(m, ids)
		if err != nil {
			return summary, fmt.Errorf("people[%d]: %w", i, err)
		}
		if _, _, err := svc.CreatePerson(ctx, person.Draft()); err != nil {
			return summary, fmt.Errorf("people[%d]: %w", i, err)
		}
		summary.People++
	}
	for i, m := range data.Clubs {
		club, err := domain.ClubFromMap(m, ids)
		if err != nil {
			return summary, fmt.Errorf("clubs[%d]: %w", i, err)
		}
		if _, _, err := svc.CreateClub(ctx, club.OwnerID, club.Draft()); err != nil {
			return summary, fmt.Errorf("clubs[%d]: %w", i, err)
		}
		summary.Clubs++
	}
	for i, m := range data.Memberships {
		if _, _, err := svc.JoinClub(ctx, m.UserID, m.ClubID); err != nil {
			return summary, fmt.Errorf("memberships[%d]: %w", i, err)
		}
		summary.Memberships++
	}
	return summary, nil
}
