package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/extract"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score [features-file]",
	Short: "Score a single prospect against the ICP or a compiled profile",
	Long: `Score a single prospect. Features come either from a YAML/JSON file
or are extracted from a saved page given with --html and --url.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("icp", "", "ICP file (defaults to the icp section of the config)")
	scoreCmd.Flags().StringP("profile", "p", "", "compiled profile file, takes precedence over the ICP")
	scoreCmd.Flags().String("html", "", "saved page to extract features from")
	scoreCmd.Flags().String("url", "", "address of the saved page, used to pick the extractor")
	scoreCmd.Flags().BoolP("blend", "b", false, "blend the rule score with an AI assessment")
}

func score(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	l, config := setup()

	icp := config.ICP
	if path, _ := cmd.Flags().GetString("icp"); path != "" {
		loaded, err := loadICP(path)
		if err != nil {
			l.Fatal("loading icp", zap.Error(err))
		}
		icp = loaded
	}

	var compiled *prospect.CompiledProfile
	if path, _ := cmd.Flags().GetString("profile"); path != "" {
		loaded, err := loadProfile(path)
		if err != nil {
			l.Fatal("loading profile", zap.Error(err))
		}
		compiled = loaded
	}

	features, pageText, err := scoreInput(cmd, args)
	if err != nil {
		l.Fatal("reading prospect", zap.Error(err))
	}

	var result prospect.ScoreResult
	if compiled != nil {
		result = scoring.ScoreProfile(*compiled, features)
		if icp == nil {
			profileICP := compiled.ICP()
			icp = &profileICP
		}
	} else {
		result = scoring.Score(icp, features)
	}

	if blend, _ := cmd.Flags().GetBool("blend"); blend {
		assessor := scoring.NewAssessor(newCompleter(ctx, config, l), l.Named("assessor"))
		result = scoring.NewBlender(assessor, l).Blend(ctx, result, icp, features, pageText)
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

// scoreInput returns the features and the visible page text when a page was given.
func scoreInput(cmd *cobra.Command, args []string) (*prospect.Features, string, error) {
	htmlPath, _ := cmd.Flags().GetString("html")
	if htmlPath == "" {
		if len(args) == 0 {
			return nil, "", errors.New("either a features file or --html is required")
		}
		f, err := loadFeatures(args[0])
		return f, "", err
	}

	raw, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", htmlPath, err)
	}
	pageURL, _ := cmd.Flags().GetString("url")

	f, err := extract.Page(string(raw), pageURL)
	if err != nil {
		return nil, "", err
	}
	return &f, extract.PlainText(string(raw)), nil
}
