package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/filtering"
	"github.com/spigell/prospectiq/internal/logger"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/scoring"
)

const (
	PromptReport      = "Report"
	PromptStepsStatus = "Show steps status"
	PromptDumpToFile  = "Dump prospects to file"
	PromptExit        = "Exit"
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReport, PromptStepsStatus, PromptDumpToFile, PromptExit},
}

var scanCmd = &cobra.Command{
	Use:   "scan <prospects-file>",
	Short: "Score a batch of prospects and keep the best ones",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scan(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("icp", "", "ICP file (defaults to the icp section of the config)")
	scanCmd.Flags().StringP("profile", "p", "", "compiled profile file, takes precedence over the ICP")
	scanCmd.Flags().IntP("min-score", "m", 0, "drop prospects scoring under this value")
	scanCmd.Flags().Int("concurrency", 0, "parallel AI assessments (default 4)")
	scanCmd.Flags().Bool("no-ai", false, "score with the rules only")
	scanCmd.Flags().Bool("no-quota", false, "do not apply the scoring quota")
	scanCmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without asking")

	viper.BindPFlag("scan.profile-file", scanCmd.Flags().Lookup("profile"))
	viper.BindPFlag("scan.min-score", scanCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("scan.concurrency", scanCmd.Flags().Lookup("concurrency"))
}

func scan(cmd *cobra.Command, path string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l, config := setup()
	l = logger.WithRunID(l, uuid.NewString())

	l.Info("starting the scan", zap.String("version", version), zap.String("file", path))

	prospects, err := loadProspects(path)
	if err != nil {
		l.Fatal("loading prospects", zap.Error(err))
	}
	if prospects.Len() == 0 {
		l.Info("exiting", zap.String("reason", "no prospects found"))
		return
	}

	cfg := &filtering.Config{
		ICP:         config.ICP,
		MinScore:    config.Scan.MinScore,
		Concurrency: config.Scan.Concurrency,
	}
	if icpFile, _ := cmd.Flags().GetString("icp"); icpFile != "" {
		if cfg.ICP, err = loadICP(icpFile); err != nil {
			l.Fatal("loading icp", zap.Error(err))
		}
	}
	if config.Scan.ProfileFile != "" {
		if cfg.Profile, err = loadProfile(config.Scan.ProfileFile); err != nil {
			l.Fatal("loading profile", zap.Error(err))
		}
	}

	steps := filtering.Default()
	deps := filtering.Deps{Logger: l}

	if noQuota, _ := cmd.Flags().GetBool("no-quota"); noQuota {
		filtering.DisableByName(steps, "quota", "disabled by flag")
	} else {
		deps.Quota = scoring.NewQuota()
		if config.Scan.QuotaLimit > 0 {
			deps.Quota.Limit = config.Scan.QuotaLimit
		}
	}

	if noAI, _ := cmd.Flags().GetBool("no-ai"); noAI {
		filtering.DisableByName(steps, "ai_blend", "disabled by flag")
	} else if completer := newCompleter(ctx, config, l); completer == nil {
		filtering.DisableByName(steps, "ai_blend", "ai provider is not configured")
	} else {
		deps.Scorer = scoring.NewAssessor(completer, l.Named("assessor"))
	}

	prospects, err = filtering.Run(ctx, cfg, deps, steps, prospects)
	if err != nil {
		l.Fatal("scan failed", zap.Error(err))
	}
	prospects.SortByScore()

	if prospects.Len() == 0 {
		l.Info("exiting", zap.String("reason", "no prospects left after filters"))
		return
	}

	if autoApprove, _ := cmd.Flags().GetBool("auto-approve"); autoApprove {
		if err := handleAction(PromptReport, l, steps, prospects); err != nil {
			l.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			l.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, l, steps, prospects); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			l.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, l *zap.Logger, steps []filtering.Filter, prospects *prospect.Prospects) error {
	switch action {
	case PromptReport:
		pretty, _ := json.MarshalIndent(prospects.Report(), "", "  ")
		l.Info(string(pretty), zap.Int("prospects count", prospects.Len()))
		return nil
	case PromptStepsStatus:
		pretty, _ := json.MarshalIndent(filtering.Describe(steps), "", "  ")
		l.Info(string(pretty))
		return nil
	case PromptDumpToFile:
		filename, err := prospects.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		l.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		l.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}
