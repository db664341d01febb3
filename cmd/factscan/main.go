package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/byteowlz/factscan/internal/analyzer"
	"github.com/byteowlz/factscan/internal/classifier"
	"github.com/byteowlz/factscan/internal/config"
	"github.com/byteowlz/factscan/internal/extractor"
	"github.com/byteowlz/factscan/internal/logging"
	"github.com/byteowlz/factscan/internal/report"
	"github.com/byteowlz/factscan/pkg/factscan"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some inputs failed, some succeeded
)

var (
	cfgFile         string
	outputFile      string
	outputFormat    string
	inputFile       string
	pageURL         string
	endpoint        string
	fetchMode       string
	browserCookies  string
	userAgent       string
	browserAgent    string
	timeout         int
	workers         int
	lineWidth       int
	delay           float64
	manual          bool
	continueOnError bool
	verbose         bool
	quiet           bool
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "factscan [urls or files...]",
	Short: "Check web pages for misinformation",
	Long: `factscan extracts the main content of web pages and sends it to a
classification service that rates it for misinformation.

Arguments may be http(s) URLs or saved HTML files. URLs are also read from
--file or, when piped, from stdin.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitErr
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		if !quiet {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/factscan/config.toml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "classification service analyze URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-result output")

	// Input/Output flags
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read URLs from file (one per line)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write results to file (default: stdout)")
	rootCmd.Flags().StringVar(&outputFormat, "format", "text", "output format (text|markdown|json|yaml)")
	rootCmd.Flags().IntVar(&lineWidth, "line-width", 80, "wrap explanations in text output (0 = unlimited)")
	rootCmd.Flags().StringVar(&pageURL, "page-url", "", "URL a saved HTML file was captured from")

	// Analysis flags
	rootCmd.Flags().BoolVarP(&manual, "manual", "m", false, "manual analysis (social pages, no content gate, stricter length)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "concurrent classification calls for multi-article pages")

	// Fetch flags
	rootCmd.Flags().StringVar(&fetchMode, "mode", "", "fetch mode (auto|static|javascript|reader)")
	rootCmd.Flags().StringVarP(&browserCookies, "browser", "b", "", "import cookies from browser (none|auto|chrome|firefox|safari|zen)")
	rootCmd.Flags().IntVar(&timeout, "timeout", 0, "fetch timeout in seconds")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "custom user agent string")
	rootCmd.Flags().StringVar(&browserAgent, "browser-agent", "", "browser agent type (auto|chrome|firefox|safari|edge)")

	// Pipeline flags
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "continue processing remaining inputs on error")
	rootCmd.Flags().Float64Var(&delay, "delay", 0, "delay in seconds between requests (rate limiting)")

	rootCmd.AddCommand(healthCmd, settingsCmd, feedbackCmd, configCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) && verbose && !quiet {
		fmt.Fprintf(os.Stderr, "Error reading .env: %v\n", err)
	}

	if cfgFile != "" {
		return
	}
	configPath, err := config.DefaultPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// Auto-create config on first run
		if createErr := config.Default().CreateExampleConfig(configPath); createErr == nil && !quiet {
			fmt.Fprintf(os.Stderr, "Created config file: %s\n", configPath)
		}
	}
}

// loadConfig reads the config file and applies flags that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if endpoint != "" {
		cfg.Classifier.Endpoint = endpoint
	}
	if flags.Changed("mode") {
		cfg.Fetch.Mode = fetchMode
	}
	if flags.Changed("browser") {
		cfg.Browser.Cookies = browserCookies
	}
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = timeout
	}
	if userAgent != "" {
		cfg.Fetch.UserAgent = userAgent
	}
	if browserAgent != "" {
		cfg.Fetch.BrowserAgent = browserAgent
	}
	if flags.Changed("workers") {
		cfg.Analysis.MultiArticleWorkers = workers
	}
	if verbose {
		cfg.Logging.Level = "debug"
	} else if quiet {
		cfg.Logging.Level = "error"
	}
	return cfg, cfg.Validate()
}

// setup loads config and builds the logger and scanner shared by every
// command.
func setup(cmd *cobra.Command, opts ...factscan.Option) (*factscan.Scanner, zerolog.Logger, io.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, zerolog.Nop(), nil, exitError(ExitConfigError, "failed to load config: %v", err)
	}
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), nil, exitError(ExitConfigError, "failed to set up logging: %v", err)
	}
	scanner, err := factscan.New(cfg, logger, opts...)
	if err != nil {
		closer.Close()
		return nil, zerolog.Nop(), nil, exitError(ExitConfigError, "failed to create scanner: %v", err)
	}
	return scanner, logger, closer, nil
}

func run(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return exitError(ExitInvalidInput, "%v", err)
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return exitError(ExitInvalidInput, "failed to collect inputs: %v", err)
	}
	if len(inputs) == 0 {
		return exitError(ExitInvalidInput, "no URLs or files provided")
	}
	if pageURL != "" && len(inputs) > 1 {
		return exitError(ExitInvalidInput, "--page-url applies to a single file")
	}

	scanner, logger, closer, err := setup(cmd, factscan.WithPresenter(newCLIPresenter(os.Stderr, quiet)))
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := scanner.LoadSettings(ctx); err != nil && !quiet {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	mode := factscan.ModeAuto
	if manual {
		mode = factscan.ModeManual
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return exitError(ExitFileIOError, "failed to create output file %s: %v", outputFile, err)
		}
		defer f.Close()
		output = f
	}

	var reports []report.Report
	hadError := false
	networkError := false

	for i, in := range inputs {
		if verbose && !quiet {
			fmt.Fprintf(os.Stderr, "Processing [%d/%d]: %s\n", i+1, len(inputs), in.target)
		}

		var out analyzer.Outcome
		target := in.target
		if in.isFile {
			out, target, err = scanner.AnalyzeFile(ctx, in.target, pageURL, mode)
		} else {
			out, err = scanner.AnalyzeURL(ctx, in.target, mode)
		}
		if err != nil {
			hadError = true
			networkError = networkError || !in.isFile
			logger.Error().Err(err).Str("input", in.target).Msg("input failed")
			if !quiet {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", in.target, err)
			}
			if !continueOnError {
				if in.isFile {
					return exitError(ExitFileIOError, "")
				}
				return exitError(ExitNetworkError, "")
			}
			continue
		}

		reports = append(reports, report.New(target, out))
		if out.Status == analyzer.StatusFailed {
			hadError = true
			networkError = networkError || out.ErrorKind == classifier.KindConnection || out.ErrorKind == classifier.KindTimeout
			if !continueOnError {
				break
			}
		}

		// Rate limiting delay between requests
		if delay > 0 && i < len(inputs)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(delay*1000) * time.Millisecond):
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if len(reports) > 0 {
		renderer := report.Renderer{LineWidth: lineWidth}
		if err := renderer.Render(output, format, reports...); err != nil {
			return exitError(ExitFileIOError, "failed to write output: %v", err)
		}
	}

	succeeded := 0
	for _, r := range reports {
		if r.Status != analyzer.StatusFailed {
			succeeded++
		}
	}
	switch {
	case !hadError:
		return nil
	case succeeded > 0:
		return &exitErr{code: ExitPartialError}
	case networkError:
		return &exitErr{code: ExitNetworkError}
	}
	return &exitErr{code: ExitProcessError}
}

type input struct {
	target string
	isFile bool
}

func collectInputs(args []string) ([]input, error) {
	var raw []string

	// Add inputs from command line arguments
	raw = append(raw, args...)

	// Add URLs from file if specified
	if inputFile != "" {
		fileURLs, err := readURLsFromFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from file %s: %w", inputFile, err)
		}
		raw = append(raw, fileURLs...)
	}

	// Read URLs from stdin if no args and no file specified
	if len(args) == 0 && inputFile == "" {
		stdinURLs, err := readURLsFromStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from stdin: %w", err)
		}
		raw = append(raw, stdinURLs...)
	}

	var inputs []input
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if in, ok := classifyInput(r); ok {
			inputs = append(inputs, in)
		} else if !quiet {
			fmt.Fprintf(os.Stderr, "Ignoring invalid input: %s\n", r)
		}
	}
	return inputs, nil
}

// classifyInput accepts http(s) URLs, file:// URLs and existing paths.
func classifyInput(s string) (input, bool) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return input{target: s}, true
	}
	if strings.HasPrefix(s, "file://") {
		u, err := url.Parse(s)
		if err != nil {
			return input{}, false
		}
		return input{target: u.Path, isFile: true}, true
	}
	if info, err := os.Stat(s); err == nil && !info.IsDir() {
		return input{target: s, isFile: true}, true
	}
	return input{}, false
}

func readURLsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

func readURLsFromStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}

	// Data is being piped in
	var urls []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

// cliPresenter prints progress and notices to stderr; results go through
// the report renderer instead.
type cliPresenter struct {
	w     io.Writer
	quiet bool
}

var _ analyzer.Presenter = (*cliPresenter)(nil)

func newCLIPresenter(w io.Writer, quiet bool) *cliPresenter {
	return &cliPresenter{w: w, quiet: quiet}
}

func (p *cliPresenter) OnLoading(label string) {
	if !p.quiet {
		fmt.Fprintf(p.w, "Analyzing %s...\n", label)
	}
}

func (p *cliPresenter) OnResult(*classifier.Result, *extractor.Content) {}

func (p *cliPresenter) OnError(message string, kind classifier.Kind) {
	if !p.quiet {
		fmt.Fprintf(p.w, "Analysis error (%s): %s\n", kind, message)
	}
}

func (p *cliPresenter) OnMultiArticleResult([]analyzer.ArticleResult) {}

func (p *cliPresenter) OnSocialNotice(platform string) {
	if !p.quiet {
		fmt.Fprintf(p.w, "%s page detected. Use --manual to analyze a post.\n", platform)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
