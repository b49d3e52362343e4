package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/maze-duel/internal/botstore"
	"github.com/MJE43/maze-duel/internal/scripting"
)

func newBotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage registered competitor programs",
	}
	cmd.AddCommand(newBotsAddCmd(a), newBotsListCmd(a), newBotsRmCmd(a))
	return cmd
}

// openStore opens and migrates the configured bot registry.
func (a *app) openStore() (*botstore.Store, error) {
	store, err := botstore.New(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newBotsAddCmd(a *app) *cobra.Command {
	var role, name string
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Register a program, replacing any bot with the same role and name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := scripting.ParseRole(role)
			if err != nil {
				return err
			}
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			bot, err := store.Put(scripting.Source{Role: r, Name: name, Code: string(code)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", bot.ID, bot.Role, bot.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "maze-master or adventurers")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newBotsListCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered bots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r scripting.Role
			if role != "" {
				parsed, err := scripting.ParseRole(role)
				if err != nil {
					return err
				}
				r = parsed
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			bots, err := store.List(r)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tROLE\tNAME\tUPDATED")
			for _, b := range bots {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Role, b.Name, b.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only list one side")
	return cmd
}

func newBotsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a registered bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(args[0])
		},
	}
}
