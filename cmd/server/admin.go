package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"petalarena.io/internal/persistence/identity"
	journal "petalarena.io/internal/persistence/log"
	"petalarena.io/internal/persistence/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect stored player profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <username>",
		Short: "Print a player's stored inventory and hotbar as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnv()
			if err != nil {
				return err
			}
			store, err := openProfiles(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return showProfile(cmd.Context(), store, args[0], cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List usernames with a stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadEnv()
			if err != nil {
				return err
			}
			store, err := openProfiles(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return listProfiles(cmd.Context(), store, cmd.OutOrStdout())
		},
	})
	return cmd
}

func listProfiles(ctx context.Context, store profile.Store, out io.Writer) error {
	names, err := store.Usernames(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if _, err := fmt.Fprintln(out, n); err != nil {
			return err
		}
	}
	return nil
}

func showProfile(ctx context.Context, store profile.Store, username string, out io.Writer) error {
	p, ok, err := store.Load(ctx, username)
	if err != nil {
		return eris.Wrapf(err, "load profile %q", username)
	}
	if !ok {
		return eris.Errorf("no profile for %q", username)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage session tokens in the local sessions table",
	}
	issue := &cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a session token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadEnv()
			if err != nil {
				return err
			}
			sessions, err := identity.OpenSQLite(cfg.SessionDBPath())
			if err != nil {
				return err
			}
			defer sessions.Close()
			tok := uuid.NewString()
			if err := sessions.Issue(cmd.Context(), args[0], tok, ttl); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 never expires")
	cmd.AddCommand(issue)
	return cmd
}

func newJournalCmd() *cobra.Command {
	var kind string
	var summary bool
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Read the combat and lifecycle journal",
	}
	dump := &cobra.Command{
		Use:   "dump <file.jsonl.zst>",
		Short: "Print journal entries as JSON lines, or per-kind counts with --summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpJournal(args[0], kind, summary, cmd.OutOrStdout())
		},
	}
	dump.Flags().StringVar(&kind, "kind", "", "only entries of this kind (join, death, loot, ...)")
	dump.Flags().BoolVar(&summary, "summary", false, "print counts per kind instead of entries")
	cmd.AddCommand(dump)
	return cmd
}

func dumpJournal(path, kind string, summary bool, out io.Writer) error {
	counts := map[string]int{}
	enc := json.NewEncoder(out)
	err := journal.ReadFile(path, func(e journal.Entry) error {
		if kind != "" && e.Kind != kind {
			return nil
		}
		if summary {
			counts[e.Kind]++
			return nil
		}
		return enc.Encode(e)
	})
	if err != nil || !summary {
		return err
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if _, err := fmt.Fprintf(out, "%-12s %d\n", k, counts[k]); err != nil {
			return err
		}
	}
	return nil
}
