package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/codesage/internal/api"
	"github.com/jwulff/codesage/internal/app"
	"github.com/jwulff/codesage/internal/db"
	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/session"
	"github.com/jwulff/codesage/internal/speech"
	"github.com/jwulff/codesage/internal/transport"
)

func newNewCmd(rt *runtime) *cobra.Command {
	var (
		name       string
		difficulty string
		category   string
	)

	cmd := &cobra.Command{
		Use:         "new",
		Short:       "Create an interview and start it",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("candidate name cannot be empty")
			}
			d, ok := domain.ParseDifficulty(difficulty)
			if !ok {
				return fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", difficulty)
			}

			client := api.New(rt.cfg.APIURL, rt.logger)
			iv, err := client.Create(cmd.Context(), api.CreateRequest{
				CandidateName: name,
				Difficulty:    d,
				Category:      category,
			})
			if err != nil {
				return err
			}
			return rt.runInterview(cmd.Context(), client, iv)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "candidate name")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", string(domain.DifficultyMedium), "easy, medium or hard")
	cmd.Flags().StringVarP(&category, "category", "c", "all", "question category")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newJoinCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "join <interview-id>",
		Short:       "Start or resume an existing interview",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.New(rt.cfg.APIURL, rt.logger)
			iv, err := client.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return rt.runInterview(cmd.Context(), client, iv)
		},
	}
}

// runInterview wires the transport, archive, voice and session machine together
// and hands the terminal to the interview UI until the user quits.
func (rt *runtime) runInterview(ctx context.Context, client *api.Client, iv domain.Interview) error {
	if iv.Status.Terminal() {
		return fmt.Errorf("interview %s is already %s", iv.ID, iv.Status)
	}
	if iv.Status == domain.StatusCreated {
		if err := client.Start(ctx, iv.ID); err != nil {
			return err
		}
	}

	cfg := rt.cfg
	logger := rt.logger

	tr := transport.New(transport.Config{
		URL:         cfg.WSURL,
		BaseDelay:   cfg.Reconnect.BaseDelay,
		MaxDelay:    cfg.Reconnect.MaxDelay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		SendBuffer:  cfg.Reconnect.SendBuffer,
	}, transport.WithLogger(logger))
	defer tr.Close()

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLanguage(cfg.Language),
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("archive unavailable, continuing without it", "path", cfg.DBPath, "error", err)
	} else {
		defer store.Close()
		rec := db.NewRecorder(store, logger)
		defer rec.Close()
		opts = append(opts, session.WithObserver(rec))
	}

	var appOpts []app.Option
	if cfg.Speech.Enabled {
		if cfg.Speech.SpeakCommand != "" {
			voice := speech.NewToggle(speech.NewCommandSpeaker(cfg.Speech.SpeakCommand, logger), cfg.Speech.Muted)
			opts = append(opts, session.WithSpeaker(voice))
			appOpts = append(appOpts, app.WithVoice(voice))
		}

		utterances, err := speech.Utterances(ctx, speech.DaemonListener{
			SocketPath: cfg.Speech.SocketPath,
			Logger:     logger,
		}, cfg.Speech.QuietPeriod)
		if err != nil {
			logger.Warn("voice input unavailable", "error", err)
		} else {
			appOpts = append(appOpts, app.WithUtterances(utterances))
		}
	}

	machine := session.NewMachine(iv, tr, opts...)
	defer machine.Close()

	now := time.Now()
	if iv.Status == domain.StatusCreated {
		err = machine.Start(now)
	} else {
		err = machine.Resume(now)
	}
	if err != nil {
		return fmt.Errorf("open interview %s: %w", iv.ID, err)
	}
	logger.Info("interview opened", "id", iv.ID, "candidate", iv.CandidateName, "status", iv.Status)

	p := tea.NewProgram(app.New(machine, tr.Events(), appOpts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run interview: %w", err)
	}
	return nil
}
