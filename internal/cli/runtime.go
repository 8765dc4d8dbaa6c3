package cli

import (
	"fmt"

	"github.com/aruiz-p/sdwan-langgraph/internal/agent"
	"github.com/aruiz-p/sdwan-langgraph/internal/bus"
	"github.com/aruiz-p/sdwan-langgraph/internal/config"
	"github.com/aruiz-p/sdwan-langgraph/internal/logging"
	"github.com/aruiz-p/sdwan-langgraph/internal/provider"
	"github.com/aruiz-p/sdwan-langgraph/internal/session"
	"github.com/aruiz-p/sdwan-langgraph/internal/timeline"
	"github.com/aruiz-p/sdwan-langgraph/internal/tools"
	"github.com/aruiz-p/sdwan-langgraph/internal/vmanage"
)

// loadConfig loads configuration and installs the logger it selects.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}

func newController(cfg *config.Config) (*vmanage.Client, error) {
	v := cfg.VManage
	if v.Host == "" {
		return nil, fmt.Errorf("vmanage host not configured (set VMANAGE_IP or vmanage.host)")
	}
	opts := []vmanage.Option{
		vmanage.WithFlowCache(v.FlowCacheSize, v.FlowCacheTTL),
	}
	if v.Insecure {
		opts = append(opts, vmanage.WithInsecureTLS())
	}
	if v.Timeout > 0 {
		opts = append(opts, vmanage.WithTimeout(v.Timeout))
	}
	return vmanage.New(vmanage.BaseURL(v.Host, v.Port), v.Username, v.Password, opts...), nil
}

func newProvider(cfg *config.Config) (provider.LLMProvider, error) {
	oa := cfg.Providers.OpenAI
	if oa.APIKey == "" {
		return nil, fmt.Errorf("openai api key not configured (set OPENAI_API_KEY)")
	}
	return provider.NewOpenAIProvider(oa.APIKey, oa.APIBase, cfg.Model.Name), nil
}

func newRegistry(cfg *config.Config, ctrl tools.Controller) *tools.Registry {
	reg := tools.NewRegistry(tools.NWPITools(ctrl)...)
	reg.Register(tools.NewTracerWaitTool(cfg.Agent.TracerWait))
	reg.Register(tools.NewReviewerWaitTool(cfg.Agent.ReviewerWait))
	return reg
}

// newLoop wires the graph. tl may be nil.
func newLoop(cfg *config.Config, msgBus *bus.MessageBus, tl *timeline.TimelineService) (*agent.Loop, error) {
	ctrl, err := newController(cfg)
	if err != nil {
		return nil, err
	}
	prov, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDir(cfg.Paths.SessionsDir); err != nil {
		return nil, fmt.Errorf("sessions dir: %w", err)
	}
	return agent.NewLoop(agent.LoopOptions{
		Bus:           msgBus,
		Provider:      prov,
		Timeline:      tl,
		Sessions:      session.NewManager(cfg.Paths.SessionsDir),
		Tools:         newRegistry(cfg, ctrl),
		Model:         cfg.Model.Name,
		MaxIterations: cfg.Agent.MaxToolIterations,
		MaxSteps:      cfg.Agent.MaxSteps,
		HistoryLimit:  cfg.Agent.HistoryLimit,
		MaxTokens:     cfg.Model.MaxTokens,
		Temperature:   cfg.Model.Temperature,
	}), nil
}

func openTimeline(cfg *config.Config) (*timeline.TimelineService, error) {
	if err := config.EnsureDir(cfg.Paths.StateDir); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	return timeline.NewTimelineService(cfg.Paths.TimelineDB)
}
