package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/research-agent/pkg/agent"
	"github.com/mikeboe/research-agent/pkg/clients"
	"github.com/mikeboe/research-agent/pkg/config"
	"github.com/mikeboe/research-agent/pkg/search"
)

var (
	question   string
	backend    string
	queryCount int
	maxLoops   int
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "research-agent",
		Short: "A terminal-based iterative research agent",
		Long:  `research-agent answers a question by generating search queries, researching them concurrently, and looping until its findings are sufficient or the loop budget runs out.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("question") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research question: ")
				input, _ := reader.ReadString('\n')
				question = strings.TrimSpace(input)
			}
			if question == "" {
				slog.Error("Question cannot be empty")
				os.Exit(1)
			}

			if cmd.Flags().Changed("queries") {
				cfg.InitialQueryCount = queryCount
			}
			if cmd.Flags().Changed("loops") {
				cfg.MaxResearchLoops = maxLoops
			}

			if err := run(cmd.Context(), cfg, question); err != nil {
				slog.Error("Research failed", "error", err)
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&question, "question", "q", "", "The research question")
	rootCmd.Flags().StringVarP(&backend, "backend", "b", "", "Search backend: tavily, duckduckgo or arxiv (default: tavily when TAVILY_API_KEY is set)")
	rootCmd.Flags().IntVarP(&queryCount, "queries", "n", 3, "Number of search queries per round")
	rootCmd.Flags().IntVarP(&maxLoops, "loops", "l", 2, "Maximum research loops")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, question string) error {
	provider, err := buildProvider(backend, cfg)
	if err != nil {
		return err
	}

	fastModel, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, cfg.QueryGeneratorModel)
	if err != nil {
		return fmt.Errorf("failed to init query model: %w", err)
	}
	reasonModel, err := clients.GoogleAi(ctx, cfg.GoogleApiKey, cfg.ReasoningModel)
	if err != nil {
		return fmt.Errorf("failed to init reasoning model: %w", err)
	}

	ctrl, err := agent.NewController(
		agent.Configuration{
			QueryGeneratorModel: cfg.QueryGeneratorModel,
			ReasoningModel:      cfg.ReasoningModel,
			InitialQueryCount:   cfg.InitialQueryCount,
			MaxResearchLoops:    cfg.MaxResearchLoops,
			QueryTimeout:        cfg.QueryTimeout,
			MaxSourcesPerQuery:  cfg.MaxSourcesPerQuery,
		},
		agent.NewGenerator(fastModel, cfg.QueryGeneratorModel),
		agent.NewResearcher(provider, fastModel, cfg.QueryGeneratorModel, cfg.MaxSourcesPerQuery),
		agent.NewReflector(reasonModel, cfg.ReasoningModel),
		agent.NewSynthesizer(reasonModel, cfg.ReasoningModel),
	)
	if err != nil {
		return err
	}

	result, err := ctrl.Run(ctx, question)
	if err != nil {
		return err
	}

	printAnswer(result)
	return nil
}

func buildProvider(name string, cfg *config.Config) (search.Provider, error) {
	if name == "" {
		if cfg.TavilyApiKey != "" {
			name = "tavily"
		} else {
			name = "duckduckgo"
		}
	}

	switch name {
	case "tavily":
		if cfg.TavilyApiKey == "" {
			return nil, errors.New("tavily backend requires TAVILY_API_KEY")
		}
		return search.NewTavily(cfg.TavilyApiKey), nil
	case "duckduckgo":
		return search.NewDuckDuckGo(), nil
	case "arxiv":
		return search.NewArxiv(), nil
	default:
		return nil, fmt.Errorf("unknown search backend: %s", name)
	}
}

func printAnswer(result *agent.RunResult) {
	fmt.Println(result.Answer.Text)

	if len(result.Answer.CitedSourceIDs) == 0 {
		return
	}

	byID := make(map[string]agent.Source, len(result.State.SourcesGathered))
	for _, src := range result.State.SourcesGathered {
		byID[src.ID] = src
	}

	fmt.Println("\nSources:")
	for i, id := range result.Answer.CitedSourceIDs {
		src := byID[id]
		title := src.Title
		if title == "" {
			title = src.URL
		}
		fmt.Printf("  [%d] %s\n      %s\n", i+1, title, src.URL)
	}
}
