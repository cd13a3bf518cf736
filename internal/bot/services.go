package bot

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"time"
)

type Services struct {
	Positions positionService
	Runs      runService
	Keywords  keywordService
	Query     queryService
	Selection selectionService
	Outreach  outreachService
	Responses responseService
	Templates templateService
	Scraping  scrapingService
}

type dataRepository interface {
	Save(ctx context.Context, id string, data []byte) error
	LoadAndRemove(ctx context.Context, id string) ([]byte, error)
}

type positionService interface {
	Search(ctx context.Context, text string, page int) ([]entities.Position, error)
	Details(ctx context.Context, id int) (services.PositionDetails, error)
	SelectPosition(ctx context.Context, pc services.PipelineContext, id int) (services.PipelineContext, error)
	UpdateScoutURL(ctx context.Context, id int, url string) error
}

type runService interface {
	History(ctx context.Context, positionID int, limit int) ([]entities.PipelineRun, error)
	Resume(ctx context.Context, runID int) (services.PipelineContext, error)
}

type keywordService interface {
	Extract(ctx context.Context, pc services.PipelineContext) (services.PipelineContext, error)
	Refine(ctx context.Context, pc services.PipelineContext, jobType string) (services.PipelineContext, error)
	Combine(ctx context.Context, pc services.PipelineContext) (services.PipelineContext, error)
	Override(pc services.PipelineContext, step entities.StepName, text string) (services.PipelineContext, error)
}

type queryService interface {
	GenerateQuery(ctx context.Context, pc services.PipelineContext) (services.PipelineContext, error)
	Execute(ctx context.Context, pc services.PipelineContext, chatID int64) (services.PipelineContext, entities.QueryResult, error)
}

type selectionService interface {
	Load(ctx context.Context, pc services.PipelineContext) (services.PipelineContext, error)
	Toggle(pc services.PipelineContext, key string) (services.PipelineContext, error)
	SetFixed(pc services.PipelineContext, key string, fixed bool) (services.PipelineContext, error)
	SelectAll(pc services.PipelineContext, selected bool) (services.PipelineContext, error)
	Confirm(ctx context.Context, pc services.PipelineContext) (services.PipelineContext, int64, error)
}

type outreachService interface {
	ComposeMessage(ctx context.Context, pc services.PipelineContext, title, content string, validUntil time.Time) (services.PipelineContext, error)
	StartDelivery(ctx context.Context, pc services.PipelineContext, chatID int64, progress services.ProgressFunc) (*services.DeliveryJob, error)
	RetryFailed(ctx context.Context, job *services.DeliveryJob, progress services.ProgressFunc) error
	MarkSentManually(ctx context.Context, pc services.PipelineContext, job *services.DeliveryJob, key string) error
}

type responseService interface {
	CheckPosition(ctx context.Context, positionID int, chatID int64) (services.ResponseReport, error)
	SetStatusManually(ctx context.Context, positionID int, key string, status entities.ScoutStatus,
		contact *entities.ContactInfo) error
}

type templateService interface {
	Save(ctx context.Context, step entities.StepName, name, body string, isDefault bool) (int, error)
	List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error)
	Current(ctx context.Context, step entities.StepName) (entities.PromptTemplate, error)
}

type scrapingService interface {
	RequestScraping(ctx context.Context, platform string) error
	Status(ctx context.Context) (services.ScrapingStatus, error)
}
