package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/prospectiq/internal/profile"
)

var compileCmd = &cobra.Command{
	Use:   "compile [description]",
	Short: "Compile a free-text ICP description into a scoring profile",
	Run: func(cmd *cobra.Command, args []string) {
		compile(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringP("output", "o", "", "write the profile to this file instead of stdout")
}

func compile(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	l, config := setup()

	description := strings.TrimSpace(strings.Join(args, " "))
	if description == "" {
		prompt := promptui.Prompt{
			Label: "Describe your ideal customer",
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("description must not be empty")
				}
				return nil
			},
		}

		var err error
		description, err = prompt.Run()
		if err != nil {
			l.Fatal("exiting", zap.Error(err))
		}
	}

	compiler := profile.NewCompiler(newCompleter(ctx, config, l), l.Named("compiler"))
	result := compiler.CompileWithFallback(ctx, description)

	out, err := yaml.Marshal(result)
	if err != nil {
		l.Fatal("encoding profile", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Print(string(out))
		return
	}

	if err := os.WriteFile(output, out, 0o644); err != nil {
		l.Fatal("writing profile", zap.Error(err))
	}
	l.Info("profile written", zap.String("filename", output), zap.String("name", result.Name))
}
