package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/franz/mldb/internal/groups"
	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage experiment groups",
	Long: `Groups are free-form names an experiment can belong to any number of.
Names of the form key=value;key=value carry facets that exports break out
into columns, e.g. "dataset=mnist;model=resnet18".`,
}

var groupAddCmd = &cobra.Command{
	Use:   "add <group> <expid>...",
	Short: "Add experiments to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMembership(cmd, args[0], args[1:], true)
	},
}

var groupRmCmd = &cobra.Command{
	Use:   "rm <group> <expid>...",
	Short: "Remove experiments from a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMembership(cmd, args[0], args[1:], false)
	},
}

var groupLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List every group in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		facets, _ := cmd.Flags().GetBool("facets")
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			names, err := s.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				printGroup(cmd, name, facets)
			}
			return nil
		})
	},
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <group>",
	Short: "List the experiments in a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			ids, err := s.GetGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var groupOfCmd = &cobra.Command{
	Use:   "of <expid>...",
	Short: "List the groups of one or more experiments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facets, _ := cmd.Flags().GetBool("facets")
		return withStore(cmd.Context(), func(s store.ExperimentStore) error {
			var (
				names []string
				err   error
			)
			if len(args) == 1 {
				names, err = s.GetGroupsOfExp(cmd.Context(), args[0])
			} else {
				names, err = s.GetGroupsOfManyExps(cmd.Context(), args)
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				printGroup(cmd, name, facets)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupAddCmd, groupRmCmd, groupLsCmd, groupMembersCmd, groupOfCmd)

	groupLsCmd.Flags().Bool("facets", false, "break faceted names into key=value columns")
	groupOfCmd.Flags().Bool("facets", false, "break faceted names into key=value columns")
}

func changeMembership(cmd *cobra.Command, group string, ids []string, add bool) error {
	members := make([]store.Membership, 0, len(ids))
	for _, id := range ids {
		members = append(members, store.Membership{ExpID: id, Group: group})
	}

	verb := "Added"
	if !add {
		verb = "Removed"
	}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		var err error
		switch {
		case len(members) == 1 && add:
			err = s.AddToGroup(cmd.Context(), ids[0], group)
		case len(members) == 1:
			err = s.RemoveFromGroup(cmd.Context(), ids[0], group)
		case add:
			err = s.AddManyToGroup(cmd.Context(), members)
		default:
			err = s.RemoveManyFromGroup(cmd.Context(), members)
		}

		var partial *store.PartialError
		if errors.As(err, &partial) {
			util.WarnLog("%s %d of %d memberships before %s failed", verb, len(partial.Completed), len(members), partial.Failed)
			return err
		}
		if err != nil {
			return err
		}
		util.SuccessLog("%s %d experiment(s) for group %q", verb, len(ids), groups.Normalize(group))
		return nil
	})
}

func printGroup(cmd *cobra.Command, name string, withFacets bool) {
	out := cmd.OutOrStdout()
	if !withFacets {
		fmt.Fprintln(out, name)
		return
	}
	facets, ok := groups.ParseFacets(name)
	if !ok {
		fmt.Fprintln(out, name)
		return
	}
	fmt.Fprintln(out, strings.ReplaceAll(groups.FormatFacets(facets), ";", "\t"))
}
