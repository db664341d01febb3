package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/config"
	"github.com/byteowlz/factscan/internal/settings"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the classification service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		start := time.Now()
		err = scanner.Health(cmd.Context())
		url := classifier.HealthURL(scanner.Client().Endpoint)
		if err != nil {
			return exitError(ExitNetworkError, "%s: unhealthy (%s): %v", url, classifier.KindOf(err), err)
		}
		if !quiet {
			fmt.Printf("%s: ok (%s)\n", url, time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change stored analysis preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		prefs, err := scanner.LoadSettings(cmd.Context())
		if err != nil {
			return exitError(ExitFileIOError, "failed to load settings: %v", err)
		}
		return printSettings(prefs)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference (autoAnalyze, sensitivity, whitelistedDomains, blacklistedDomains)",
	Long: `Change a stored preference. Domain lists take a comma separated value;
an empty string clears the list.

  factscan settings set autoAnalyze false
  factscan settings set blacklistedDomains example.com,tabloid.example`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx := cmd.Context()
		prefs, err := scanner.LoadSettings(ctx)
		if err != nil {
			return exitError(ExitFileIOError, "failed to load settings: %v", err)
		}
		updated, err := applySetting(prefs, args[0], args[1])
		if err != nil {
			return exitError(ExitInvalidInput, "%v", err)
		}
		if err := scanner.SaveSettings(ctx, updated); err != nil {
			return exitError(ExitFileIOError, "%v", err)
		}
		return printSettings(updated)
	},
}

// applySetting returns prefs with key set from its command line form.
func applySetting(prefs settings.Settings, key, value string) (settings.Settings, error) {
	values := prefs.Values()
	switch key {
	case settings.KeyAutoAnalyze:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return prefs, fmt.Errorf("autoAnalyze must be true or false")
		}
		values[key] = b
	case settings.KeySensitivity:
		if !settings.Sensitivity(value).Valid() {
			return prefs, fmt.Errorf("sensitivity must be low, moderate or high")
		}
		values[key] = value
	case settings.KeyWhitelistedDomains, settings.KeyBlacklistedDomains:
		domains := []string{}
		for _, d := range strings.Split(value, ",") {
			if d = strings.TrimSpace(d); d != "" {
				domains = append(domains, d)
			}
		}
		values[key] = domains
	default:
		return prefs, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settings.Keys, ", "))
	}
	return settings.Decode(values)
}

func printSettings(prefs settings.Settings) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(prefs); err != nil {
		return exitError(ExitFileIOError, "failed to write settings: %v", err)
	}
	return enc.Close()
}

var (
	feedbackClassification string
	feedbackCorrect        bool
	feedbackComment        string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <url>",
	Short: "Report whether a verdict was correct",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if feedbackClassification == "" {
			return exitError(ExitInvalidInput, "--classification is required")
		}
		scanner, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		err = scanner.Feedback(cmd.Context(), classifier.Feedback{
			URL:            args[0],
			Classification: feedbackClassification,
			Correct:        feedbackCorrect,
			Comment:        feedbackComment,
		})
		if err != nil {
			return exitError(ExitNetworkError, "failed to submit feedback: %v", err)
		}
		if !quiet {
			fmt.Println("Feedback submitted.")
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the config file location, creating it if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return exitError(ExitConfigError, "%v", err)
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.Default().CreateExampleConfig(path); err != nil {
				return exitError(ExitFileIOError, "%v", err)
			}
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)

	feedbackCmd.Flags().StringVar(&feedbackClassification, "classification", "", "verdict being reviewed")
	feedbackCmd.Flags().BoolVar(&feedbackCorrect, "correct", false, "the verdict was correct")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "optional comment")
}
