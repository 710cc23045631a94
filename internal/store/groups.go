package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/franz/mldb/internal/groups"
)

// AddToGroup adds an experiment to a group. Adding it twice is tolerated;
// reads report each membership once.
func (s *sqlStore) AddToGroup(ctx context.Context, id, group string) error {
	group = groups.Normalize(group)
	err := s.conn.RunAndCommit(ctx, Stmt("INSERT INTO expgroups (expid, groupname) VALUES (?, ?)", id, group))
	if err != nil {
		return fmt.Errorf("failed to add %s to group %q: %w", experiment(id), group, err)
	}
	return nil
}

// AddManyToGroup applies several memberships with one commit. If one fails
// the earlier ones stay applied and a PartialError says which.
func (s *sqlStore) AddManyToGroup(ctx context.Context, members []Membership) error {
	return s.applyMemberships(ctx, "add to group", members,
		"INSERT INTO expgroups (expid, groupname) VALUES (?, ?)")
}

// RemoveFromGroup removes every membership of an experiment in a group.
func (s *sqlStore) RemoveFromGroup(ctx context.Context, id, group string) error {
	group = groups.Normalize(group)
	err := s.conn.RunAndCommit(ctx, Stmt("DELETE FROM expgroups WHERE expid = ? AND groupname = ?", id, group))
	if err != nil {
		return fmt.Errorf("failed to remove %s from group %q: %w", experiment(id), group, err)
	}
	return nil
}

// RemoveManyFromGroup is the batch form of RemoveFromGroup, with the same
// partial completion rules as AddManyToGroup.
func (s *sqlStore) RemoveManyFromGroup(ctx context.Context, members []Membership) error {
	return s.applyMemberships(ctx, "remove from group", members,
		"DELETE FROM expgroups WHERE expid = ? AND groupname = ?")
}

func (s *sqlStore) applyMemberships(ctx context.Context, op string, members []Membership, query string) error {
	if len(members) == 0 {
		return nil
	}

	stmts := make([]Statement, len(members))
	labels := make([]string, len(members)+1)
	for i, m := range members {
		group := groups.Normalize(m.Group)
		stmts[i] = Stmt(query, m.ExpID, group)
		labels[i] = fmt.Sprintf("%s/%s", m.ExpID, group)
	}
	labels[len(members)] = "commit"

	committed, failed, err := s.conn.RunSequence(ctx, stmts)
	if err != nil {
		return &PartialError{Op: op, Completed: labels[:committed], Failed: labels[failed], Err: err}
	}
	return nil
}

// GetGroup lists the experiments in a group.
func (s *sqlStore) GetGroup(ctx context.Context, group string) ([]string, error) {
	group = groups.Normalize(group)
	var ids []string
	err := s.conn.RunAndFetch(ctx, &ids,
		"SELECT DISTINCT expid FROM expgroups WHERE groupname = ? ORDER BY expid", group)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %q: %w", group, err)
	}
	return nonNil(ids), nil
}

// GetGroupsOfExp lists an experiment's groups in the order they were
// recorded.
func (s *sqlStore) GetGroupsOfExp(ctx context.Context, id string) ([]string, error) {
	var names []string
	if err := s.conn.RunAndFetch(ctx, &names, "SELECT groupname FROM expgroups WHERE expid = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get groups of %s: %w", experiment(id), err)
	}
	return dedupe(names), nil
}

// GetGroupsOfManyExps returns the distinct groups any of the experiments
// belong to, in one query.
func (s *sqlStore) GetGroupsOfManyExps(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	query, args, err := sqlx.In(
		"SELECT DISTINCT groupname FROM expgroups WHERE expid IN (?) ORDER BY groupname", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build group query: %w", err)
	}

	var names []string
	if err := s.conn.RunAndFetch(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get groups of %d experiments: %w", len(ids), err)
	}
	return nonNil(names), nil
}

// ListGroups returns every group name in use.
func (s *sqlStore) ListGroups(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.conn.RunAndFetch(ctx, &names, "SELECT DISTINCT groupname FROM expgroups ORDER BY groupname"); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return nonNil(names), nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
