package main

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/nickbruun/zkelection/election"
	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/spf13/cobra"
)

func newCandidatesCommand(rt *runtimeState) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List the candidates of an election and its leader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg

			cm, err := zkutils.Connect(cfg.Servers, cfg.SessionTimeout)
			if err != nil {
				return err
			}
			defer cm.Close()

			coord := election.NewZooKeeperCoordinator(cm, cfg.ACL(), false)
			w := cmd.OutOrStdout()

			for {
				candidates, err := election.ListCandidates(coord, cfg.Root, cfg.Prefix)
				if err != nil {
					return err
				}

				if err := printCandidates(w, candidates); err != nil {
					return err
				}

				if !follow {
					return nil
				}

				if err := awaitSuccession(cm, cfg.Root, candidates, cfg.SessionTimeout); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep listing the candidates every time the leadership changes")

	return cmd
}

// Wait for the leader to change.
//
// Without candidates, waits for the election root to exist, and then polls
// for candidates.
func awaitSuccession(cm *zkutils.ConnMan, root string, candidates []zkutils.SequenceNode, poll time.Duration) error {
	if len(candidates) == 0 {
		if err := <-zkutils.AwaitExists(cm.Conn, root); err != nil {
			return err
		}

		time.Sleep(poll)
		return nil
	}

	leader, _, err := election.ResolveLeader(candidates, zkutils.SequenceNode{})
	if err != nil {
		return err
	}

	leaderPath := path.Join(root, leader.Name)
	log.Debugf("Awaiting removal of leader %s", leaderPath)

	return <-zkutils.AwaitAbsent(cm.Conn, leaderPath)
}

// Print candidates in order of succession, marking the leader.
func printCandidates(w io.Writer, candidates []zkutils.SequenceNode) error {
	if len(candidates) == 0 {
		_, err := fmt.Fprintln(w, "no candidates")
		return err
	}

	leader, _, err := election.ResolveLeader(candidates, zkutils.SequenceNode{})
	if err != nil {
		return err
	}

	for _, c := range candidates {
		mark := " "
		if c.Equals(leader) {
			mark = "*"
		}

		if _, err := fmt.Fprintf(w, "%s %11d %s\n", mark, c.SequenceNumber, c.Name); err != nil {
			return err
		}
	}

	return nil
}
