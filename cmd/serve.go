package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/profile"
	"github.com/spigell/prospectiq/internal/scoring"
	"github.com/spigell/prospectiq/internal/server"
	"github.com/spigell/prospectiq/internal/summary"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring and profile compilation API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8787)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, config := setup()
	l.Info("starting the prospectiq api", zap.String("version", version))

	completer := newCompleter(ctx, config, l)

	quota := scoring.NewQuota()
	if config.Server.QuotaLimit > 0 {
		quota.Limit = config.Server.QuotaLimit
	}
	if config.Server.QuotaWindow > 0 {
		quota.Window = config.Server.QuotaWindow
	}

	srv := server.New(config.Server.Config, server.Deps{
		Compiler:   profile.NewCompiler(completer, l.Named("compiler")),
		Assessor:   scoring.NewAssessor(completer, l.Named("assessor")),
		Summarizer: summary.New(completer, l.Named("summary")),
		Quota:      quota,
	}, l)

	if err := srv.Run(ctx); err != nil {
		l.Fatal("serving http", zap.Error(err))
	}
}
