package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/codesage/internal/api"
	"github.com/jwulff/codesage/internal/db"
	"github.com/jwulff/codesage/internal/devserver"
	"github.com/jwulff/codesage/internal/mcptools"
)

func newListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List interviews known to the interview service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := api.New(rt.cfg.APIURL, rt.logger)
			interviews, err := client.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(interviews) == 0 {
				fmt.Fprintln(out, "No interviews found")
				return nil
			}
			fmt.Fprintln(out, "ID\tCREATED\tCANDIDATE\tDIFFICULTY\tSTATUS\tQUESTIONS")
			for _, iv := range interviews {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%d\n",
					iv.ID,
					iv.CreatedAt.Format(time.RFC3339),
					iv.CandidateName,
					iv.Difficulty,
					iv.Status,
					len(iv.Questions),
				)
			}
			return nil
		},
	}
}

func newHistoryCmd(rt *runtime) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show archived interviews, or one interview's transcript and report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.Open(rt.cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				return printSessions(cmd.OutOrStdout(), store, limit)
			}
			return printSession(cmd.OutOrStdout(), store, args[0])
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of most recent interviews to show")
	return cmd
}

func printSessions(out io.Writer, store *db.Store, limit int) error {
	sessions, err := store.Sessions(limit)
	if err != nil {
		return fmt.Errorf("list archived interviews: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No archived interviews")
		return nil
	}

	fmt.Fprintln(out, "ID\tCREATED\tCANDIDATE\tDIFFICULTY\tSTATUS\tQUESTIONS")
	for _, s := range sessions {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.CandidateName,
			s.Difficulty,
			s.Status,
			s.QuestionCount,
		)
	}
	return nil
}

func printSession(out io.Writer, store *db.Store, id string) error {
	s, err := store.Session(id)
	if err != nil {
		return fmt.Errorf("load archived interview: %w", err)
	}
	if s == nil {
		return fmt.Errorf("no archived interview %s", id)
	}

	fmt.Fprintf(out, "%s  %s [%s · %s]  %s\n", s.ID, s.CandidateName, s.Difficulty, s.Category, s.Status)

	msgs, err := store.Messages(id)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	fmt.Fprintln(out)
	if len(msgs) == 0 {
		fmt.Fprintln(out, "(no transcript)")
	}
	for _, m := range msgs {
		speaker := "Sage"
		if m.Role == "user" {
			speaker = "You"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), speaker, m.Content)
	}

	report, err := store.Report(id)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, report.Content, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(report.Content)
	}
	fmt.Fprintf(out, "\nReport (%s):\n%s\n", report.ReceivedAt.Format(time.RFC3339), pretty.String())
	return nil
}

func newMCPCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the interview archive to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := db.Open(rt.cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			rt.logger.Info("serving archive over MCP", "path", rt.cfg.DBPath)
			return mcptools.ServeStdio(store, Version)
		},
	}
}

func newDevServerCmd(rt *runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in for the interview service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = rt.cfg.DevServer.Addr
			}
			srv, err := devserver.New(
				devserver.WithLogger(rt.logger),
				devserver.WithMaxQuestions(rt.cfg.DevServer.MaxQuestions),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Interview service listening on http://%s\n", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	return cmd
}
