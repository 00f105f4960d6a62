package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/internal/rpc"
	"github.com/eigerco/arbiter/pkg/network/transport"
)

// clientFunc runs one client command against a connected server.
type clientFunc func(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error

func (a *app) clientCommands() []*cobra.Command {
	return []*cobra.Command{
		a.clientCommand("count", "Print the number of conflicts ever created", cobra.NoArgs, runCount),
		a.clientCommand("votes <id>", "List the ballots of a conflict in cast order", cobra.ExactArgs(1), runVotes),
		a.clientCommand("create <proposal>", "Open a conflict about a proposal (authority only)", cobra.ExactArgs(1), runCreate),
		a.clientCommand("vote <id> <true|false>", "Cast your ballot on an open conflict", cobra.ExactArgs(2), runVote),
		a.clientCommand("close <id>", "Resolve a conflict by majority (authority only)", cobra.ExactArgs(1), runClose),
		a.clientCommand("null <id>", "Resolve a conflict without supporting votes as null (authority only)", cobra.ExactArgs(1), runNull),
		a.clientCommand("stats", "Print the resolution counters", cobra.NoArgs, runStats),
		a.clientCommand("show <id>", "Print a conflict", cobra.ExactArgs(1), runShow),
		a.clientCommand("root", "Print the journal root", cobra.NoArgs, runRoot),
	}
}

func (a *app) clientCommand(use, short string, args cobra.PositionalArgs, run clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Network.RequestTimeout)
			defer cancel()

			key, err := a.loadKey()
			if err != nil {
				return err
			}
			conn, err := transport.Dial(ctx, a.cfg.Network.ServerAddr, transport.ClientConfig{
				PrivateKey:     key,
				CertValidity:   a.cfg.Network.CertValidity,
				ServerIdentity: a.cfg.Network.ServerIdentity,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			return run(ctx, cmd.OutOrStdout(), rpc.NewClient(conn), args)
		},
	}
}

func runCount(ctx context.Context, out io.Writer, c *rpc.Client, _ []string) error {
	count, err := c.ConflictCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, count)
	return nil
}

func runVotes(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	id, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	ballots, err := c.Votes(ctx, id)
	if err != nil {
		return err
	}
	for _, b := range ballots {
		fmt.Fprintf(out, "%s\t%t\n", b.Voter, b.Choice)
	}
	return nil
}

func runCreate(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	proposal, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	id, err := c.CreateConflict(ctx, proposal)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}

func runVote(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	id, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	choice, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("parse choice %q: %w", args[1], err)
	}
	if err := c.Vote(ctx, id, choice); err != nil {
		return err
	}
	fmt.Fprintf(out, "voted %t on conflict %s\n", choice, id)
	return nil
}

func runClose(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	id, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	fate, err := c.CloseConflict(ctx, id)
	if err != nil {
		return err
	}
	resolution := conflict.Invalid
	if fate {
		resolution = conflict.Valid
	}
	fmt.Fprintf(out, "conflict %s resolved %s\n", id, resolution)
	return nil
}

func runNull(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	id, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	if _, err := c.NullConflict(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "conflict %s resolved %s\n", id, conflict.Null)
	return nil
}

func runStats(ctx context.Context, out io.Writer, c *rpc.Client, _ []string) error {
	counters, err := c.Counters(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "valid:   %s\ninvalid: %s\nnull:    %s\n", counters.Valid, counters.Invalid, counters.Null)
	return nil
}

func runShow(ctx context.Context, out io.Writer, c *rpc.Client, args []string) error {
	id, err := conflict.ParseID(args[0])
	if err != nil {
		return err
	}
	cf, err := c.Conflict(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "id:         %s\n", cf.ID)
	fmt.Fprintf(out, "proposal:   %s\n", cf.Proposal)
	fmt.Fprintf(out, "resolution: %s\n", cf.Resolution)
	fmt.Fprintf(out, "votes:      %d for, %d total\n", cf.Tally.Up, cf.Tally.Total)
	return nil
}

func runRoot(ctx context.Context, out io.Writer, c *rpc.Client, _ []string) error {
	root, err := c.Root(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hex.EncodeToString(root[:]))
	return nil
}
