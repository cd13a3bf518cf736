package repositories

import (
	"context"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	gocache "github.com/patrickmn/go-cache"
	"sync"
	"time"
)

type templateRepository interface {
	GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error)
	List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error)
	Save(ctx context.Context, template entities.PromptTemplate) (int, error)
}

type CachedTemplates struct {
	repo  templateRepository
	cache *gocache.Cache

	mu          sync.Mutex
	generations map[entities.StepName]uint64
}

func NewCachedTemplates(repo templateRepository) *CachedTemplates {
	return &CachedTemplates{
		repo:        repo,
		cache:       gocache.New(10*time.Minute, 20*time.Minute),
		generations: make(map[entities.StepName]uint64),
	}
}

func (c *CachedTemplates) generation(step entities.StepName) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[step]
}

// store caches the template only if no Save for the step started after gen was read.
func (c *CachedTemplates) store(step entities.StepName, gen uint64, template entities.PromptTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[step] == gen {
		c.cache.SetDefault(string(step), template)
	}
}

func (c *CachedTemplates) invalidate(step entities.StepName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[step]++
	c.cache.Delete(string(step))
}

func (c *CachedTemplates) GetLatest(ctx context.Context, step entities.StepName) (*entities.PromptTemplate, error) {
	if value, found := c.cache.Get(string(step)); found {
		template := value.(entities.PromptTemplate)
		return &template, nil
	}

	gen := c.generation(step)
	template, err := c.repo.GetLatest(ctx, step)
	if err != nil || template == nil {
		return template, err
	}

	c.store(step, gen, *template)
	return template, nil
}

func (c *CachedTemplates) List(ctx context.Context, step entities.StepName) ([]entities.PromptTemplate, error) {
	return c.repo.List(ctx, step)
}

func (c *CachedTemplates) Save(ctx context.Context, template entities.PromptTemplate) (int, error) {
	c.invalidate(template.StepName)
	id, err := c.repo.Save(ctx, template)
	c.invalidate(template.StepName)
	return id, err
}
