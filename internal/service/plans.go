package service

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/resources"
)

const DefaultPlan = "free"

// Plan caps how many users a developer may register and how many requests
// the plan nominally allows.
type Plan struct {
	Name     string `json:"name"`
	Users    int    `json:"users"`
	Requests int    `json:"requests"`
}

func builtinPlans() map[string]Plan {
	return map[string]Plan{
		"free": {Name: "free", Users: 100, Requests: 10_000},
		"pro":  {Name: "pro", Users: 10_000, Requests: 1_000_000},
	}
}

// PlanCatalog holds the quota plans. The built-in plans are always present;
// a plans directory may override them or add new ones and is re-read when
// its contents change.
type PlanCatalog struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

func NewPlanCatalog() *PlanCatalog {
	return &PlanCatalog{plans: builtinPlans()}
}

func (c *PlanCatalog) GetPlan(
	name string,
) (
	Plan,
	error,
) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if plan, ok := c.plans[name]; ok {
		return plan, nil
	}
	return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
}

func (c *PlanCatalog) Plans() map[string]Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.plans)
}

// LoadDir replaces the catalog with the built-in plans merged with every
// *.json plan definition in dir. On error the catalog is left unchanged.
func (c *PlanCatalog) LoadDir(
	dir string,
) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plans directory '%s': %w", dir, err)
	}

	plans := builtinPlans()
	for _, file := range files {
		if !file.Type().IsRegular() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		plan, err := loadPlanDefinition(filepath.Join(dir, file.Name()))
		if err != nil {
			return err
		}
		plans[plan.Name] = plan
	}

	c.mu.Lock()
	c.plans = plans
	c.mu.Unlock()
	return nil
}

// Watch loads dir and keeps the catalog in sync with it until ctx ends.
func (c *PlanCatalog) Watch(
	ctx context.Context,
	dir string,
	logger *zap.Logger,
) error {
	if err := c.LoadDir(dir); err != nil {
		return err
	}
	logger.Info("loaded plans", zap.String("dir", dir), zap.Int("count", len(c.Plans())))

	return resources.WatchDir(ctx, dir, logger, func() {
		if err := c.LoadDir(dir); err != nil {
			logger.Warn("plans reload failed; keeping previous plans", zap.Error(err))
			return
		}
		logger.Info("reloaded plans", zap.String("dir", dir))
	})
}

func loadPlanDefinition(
	planDefPath string,
) (
	Plan,
	error,
) {
	file, err := os.ReadFile(planDefPath)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to load plan definition: %w", err)
	}

	plan := Plan{}
	if err := json.Unmarshal(file, &plan); err != nil {
		return Plan{}, fmt.Errorf("failed to parse json of '%s': %w", planDefPath, err)
	}
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(planDefPath), ".json")
	}
	if plan.Users < 0 || plan.Requests < 0 {
		return Plan{}, fmt.Errorf("plan '%s' has negative limits", plan.Name)
	}
	return plan, nil
}
