package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/scout-pipeline/internal/bot"
	"github.com/maxaizer/scout-pipeline/internal/clients/browser"
	"github.com/maxaizer/scout-pipeline/internal/clients/gemini"
	"github.com/maxaizer/scout-pipeline/internal/clients/scraper"
	"github.com/maxaizer/scout-pipeline/internal/config"
	"github.com/maxaizer/scout-pipeline/internal/logger"
	"github.com/maxaizer/scout-pipeline/internal/metrics"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	"github.com/maxaizer/scout-pipeline/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os/signal"
	"syscall"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot and the scheduled response checks",
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

type repos struct {
	positions          *repositories.Positions
	candidates         *repositories.Candidates
	positionCandidates *repositories.PositionCandidates
	runs               *repositories.Runs
	query              *repositories.CandidateQuery
	executions         *repositories.PromptExecutions
	templates          *repositories.CachedTemplates
	messages           *repositories.ScoutMessages
	scrapingTasks      *repositories.ScrapingTasks
	data               *repositories.Data
}

func newRepos(dbContext *repositories.DbContext) repos {
	return repos{
		positions:          repositories.NewPositionsRepository(dbContext.DB),
		candidates:         repositories.NewCandidatesRepository(dbContext.DB),
		positionCandidates: repositories.NewPositionCandidatesRepository(dbContext.DB),
		runs:               repositories.NewRunsRepository(dbContext.DB),
		query:              repositories.NewCandidateQuery(dbContext.DB),
		executions:         repositories.NewPromptExecutionsRepository(dbContext.DB),
		templates:          repositories.NewCachedTemplates(repositories.NewTemplatesRepository(dbContext.DB)),
		messages:           repositories.NewScoutMessagesRepository(dbContext.DB),
		scrapingTasks:      repositories.NewScrapingTasksRepository(dbContext.DB),
		data:               repositories.NewDataRepository(dbContext.DB),
	}
}

func newServices(ctx context.Context, cfg *config.Config, r repos, bus EventBus.Bus) (bot.Services, *services.ResponseService, func()) {

	aiClient, err := gemini.NewClient(ctx, cfg.AI.Key, gemini.Model(cfg.AI.Model))
	if err != nil {
		log.Fatalf("can't create AI client: %v", err)
	}
	aiClient.SetMinuteRateLimit(cfg.AI.MaxRequestsPerMinute)
	aiClient.SetDayRateLimit(cfg.AI.MaxRequestsPerDay)

	chrome := browser.New(ctx, cfg.Outreach.Headless, cfg.Outreach.BrowserTimeout)
	chrome.SetErrorCallback(func(candidateKey string, err error) {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).
			Errorf("browser failed for candidate %s: %v", candidateKey, err)
	})

	responses := services.NewResponseService(r.positions, r.positionCandidates, r.candidates, chrome, bus)

	svc := bot.Services{
		Positions: services.NewPositionService(r.positions, r.runs, r.positionCandidates),
		Runs:      services.NewRunService(r.runs),
		Keywords:  services.NewKeywordService(aiClient, r.templates, r.executions),
		Query:     services.NewQueryService(aiClient, r.templates, r.executions, r.runs, r.query, bus),
		Selection: services.NewSelectionService(r.runs, r.positionCandidates),
		Outreach: services.NewOutreachService(r.messages, r.positionCandidates, chrome, bus,
			cfg.Outreach.SendDelay),
		Responses: responses,
		Templates: services.NewTemplateService(r.templates),
		Scraping:  services.NewScrapingService(scraper.NewClient(cfg.Scraping.WebhookURL), r.scrapingTasks),
	}

	cleanup := func() {
		chrome.Close()
		if err := aiClient.Close(); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Errorf("can't close AI client: %v", err)
		}
	}
	return svc, responses, cleanup
}

func runPipeline(_ *cobra.Command, _ []string) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Metrics.Port)

	dbContext, err := repositories.NewDbContext(cfg.DB)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	r := newRepos(dbContext)
	bus := EventBus.New()

	svc, responses, cleanup := newServices(ctx, cfg, r, bus)
	defer cleanup()

	tgbot, err := bot.NewBot(ctx, cfg.Bot.Token, cfg.Bot.AdminPasswordHash, bus, svc, r.data)
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}
	go tgbot.Run()

	if cfg.Responses.CheckSchedule != "" {
		poller, err := services.NewResponsePoller(responses, cfg.Responses.CheckSchedule)
		if err != nil {
			log.Fatalf("can't create response poller: %v", err)
		}
		defer poller.Stop()
	}

	<-ctx.Done()

	log.Info("Shutting down services...")
	tgbot.Stop()
	log.Info("Services stopped.")
	return nil
}
