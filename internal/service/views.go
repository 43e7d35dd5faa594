package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	apperrors "github.com/xnome/dashboard/internal/errors"
	"github.com/xnome/dashboard/internal/mockdata"
	"github.com/xnome/dashboard/internal/ports"
	"golang.org/x/sync/errgroup"
)

// AdminViewID is the view whose payload depends on the caller's role.
const AdminViewID = "admin"

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// ViewSummary is the public description of a view.
type ViewSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Sources     []string `json:"sources"`
}

// viewOutput maps one key of a view payload to the source that fills it.
type viewOutput struct {
	key    string
	source string
}

type viewDefinition struct {
	ViewSummary
	outputs   []viewOutput
	adminOnly bool
}

var viewRegistry = []viewDefinition{
	{
		ViewSummary: ViewSummary{
			ID:          "overview",
			Name:        "Overview",
			Description: "Anome One executive cockpit: growth → monetization → liabilities → mint queue.",
			Sources:     []string{"overviewKpis", "funnel", "purchaseWaterfall", "unlockSchedule", "mintQueue"},
		},
		outputs: []viewOutput{
			{"kpis", "overviewKpis"},
			{"funnel", "funnel"},
			{"waterfall", "purchaseWaterfall"},
			{"unlockSchedule", "unlockSchedule"},
			{"mintQueue", "mintQueue"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "acquisition",
			Name:        "Acquisition & Identity",
			Description: "Traffic sources, login distribution, wallet assignment quality, and tagging coverage.",
			Sources:     []string{"acquisitionKpis", "trafficSources", "loginDistribution", "walletQuality", "taggingCoverage"},
		},
		outputs: []viewOutput{
			{"kpis", "acquisitionKpis"},
			{"sources", "trafficSources"},
			{"login", "loginDistribution"},
			{"walletQuality", "walletQuality"},
			{"tagging", "taggingCoverage"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "gameplay",
			Name:        "Gameplay: Anome One",
			Description: "DAU, matches, win-rate, sessions, and reward creation diagnostics.",
			Sources: []string{
				"gameplayKpis", "gameplayTrend", "rewardCreationTrend30d",
				"purchasedNotPlayed", "matchesPerDayDistribution",
			},
		},
		outputs: []viewOutput{
			{"kpis", "gameplayKpis"},
			{"trend", "gameplayTrend"},
			{"rewardTrend30d", "rewardCreationTrend30d"},
			{"purchasedNotPlayed", "purchasedNotPlayed"},
			{"matchesPerDay", "matchesPerDayDistribution"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "monetization",
			Name:        "Monetization",
			Description: "Purchases, ARPPU, package mix, attribution, and net waterfall.",
			Sources:     []string{"monetizationKpis", "purchasesTrend", "packageMix", "channelAttribution", "purchaseWaterfall"},
		},
		outputs: []viewOutput{
			{"kpis", "monetizationKpis"},
			{"trend", "purchasesTrend"},
			{"mix", "packageMix"},
			{"attribution", "channelAttribution"},
			{"waterfall", "purchaseWaterfall"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "rewards",
			Name:        "Rewards & Vesting",
			Description: "Unlock schedule, mint queue, mint rate, and time-to-mint behavior.",
			Sources:     []string{"rewardsKpis", "unlockSchedule", "mintQueue", "mintBehavior"},
		},
		outputs: []viewOutput{
			{"kpis", "rewardsKpis"},
			{"unlockSchedule", "unlockSchedule"},
			{"mintQueue", "mintQueue"},
			{"mintBehavior", "mintBehavior"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "tokenomics",
			Name:        "Tokenomics",
			Description: "Supply and emissions (burn not applicable).",
			Sources:     []string{"tokenomicsKpis", "supplyTrend"},
		},
		outputs: []viewOutput{{"kpis", "tokenomicsKpis"}, {"trend", "supplyTrend"}},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "treasury",
			Name:        "Treasury",
			Description: "Treasury balance, cashflow, allocation, runway, and coverage.",
			Sources:     []string{"treasuryKpis", "treasuryCashflow", "treasuryAllocation"},
		},
		outputs: []viewOutput{
			{"kpis", "treasuryKpis"},
			{"cashflow", "treasuryCashflow"},
			{"allocation", "treasuryAllocation"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "risk",
			Name:        "Risk & Compliance",
			Description: "Unlock pressure windows, concentration, and price scenarios.",
			Sources:     []string{"riskKpis", "pendingMintConcentration", "scenarioTable"},
		},
		outputs: []viewOutput{
			{"kpis", "riskKpis"},
			{"concentration", "pendingMintConcentration"},
			{"scenarios", "scenarioTable"},
		},
	},
	{
		ViewSummary: ViewSummary{
			ID:          "reports",
			Name:        "Reports",
			Description: "Auto-generated weekly narrative and executive KPIs.",
			Sources:     []string{"weeklyReport"},
		},
		outputs: []viewOutput{{"report", "weeklyReport"}},
	},
	{
		ViewSummary: ViewSummary{
			ID:          AdminViewID,
			Name:        "Admin",
			Description: "RBAC, allowlist, and operator controls.",
			Sources:     []string{"allowlist", "roleDistribution", "engagementSummary"},
		},
		outputs: []viewOutput{
			{"allowlist", "allowlist"},
			{"byRole", "roleDistribution"},
			{"engagement", "engagementSummary"},
		},
		adminOnly: true,
	},
	{
		ViewSummary: ViewSummary{
			ID:          "users",
			Name:        "Users",
			Description: "User growth and role distribution.",
			Sources:     []string{"roleDistribution", "userGrowthTrend"},
		},
		outputs: []viewOutput{
			{"byRole", "roleDistribution"},
			{"trend", "userGrowthTrend"},
			{"engagement", "engagementSummary"},
		},
	},
}

// ViewsServiceOptions groups dependencies for ViewsService.
type ViewsServiceOptions struct {
	Cache     ports.CacheRepository // Optional; nil disables caching
	CacheTTL  time.Duration         // Zero disables caching
	Allowlist *AllowlistService     // Optional; backs the live allowlist source
	Users     UserStore             // Optional; backs the live role distribution
	Evaluator JMESPathEvaluator     // Optional; defaults to go-jmespath
	Logger    *slog.Logger
}

// ViewsService resolves dashboard views to their aggregate data.
type ViewsService struct {
	cache     ports.CacheRepository
	cacheTTL  time.Duration
	allowlist *AllowlistService
	users     UserStore
	jems      JMESPathEvaluator
	logger    *slog.Logger
	byID      map[string]*viewDefinition
}

// NewViewsService constructs a new ViewsService.
func NewViewsService(opts ViewsServiceOptions) *ViewsService {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	byID := make(map[string]*viewDefinition, len(viewRegistry))
	for i := range viewRegistry {
		byID[viewRegistry[i].ID] = &viewRegistry[i]
	}
	return &ViewsService{
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		allowlist: opts.Allowlist,
		users:     opts.Users,
		jems:      jems,
		logger:    opts.Logger,
		byID:      byID,
	}
}

// ListViews returns every registered view in display order.
func (s *ViewsService) ListViews() []ViewSummary {
	out := make([]ViewSummary, 0, len(viewRegistry))
	for _, v := range viewRegistry {
		out = append(out, ViewSummary{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
			Sources:     append([]string(nil), v.Sources...),
		})
	}
	return out
}

// GetViewDataInput selects a view and narrows its data.
type GetViewDataInput struct {
	ID     string
	Role   domainauth.Role // empty for anonymous callers
	From   string
	To     string
	Select string // optional JMESPath projection
}

// ViewData is a view description together with its payload.
type ViewData struct {
	View ViewSummary `json:"view"`
	Data any         `json:"data"`
}

// GetViewData computes (or serves from cache) the payload of one view.
func (s *ViewsService) GetViewData(ctx context.Context, in GetViewDataInput) (*ViewData, error) {
	view, ok := s.byID[in.ID]
	if !ok {
		return nil, apperrors.NotFound("View not found").WithDetail("id", in.ID)
	}
	rng, err := mockdata.ParseRange(in.From, in.To)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := s.jems.Validate(in.Select); err != nil {
		return nil, apperrors.ValidationField("select", "Invalid select expression").WithDetail("details", err.Error())
	}

	var data any
	switch {
	case view.adminOnly && !in.Role.AtLeast(domainauth.RoleAdmin):
		role := string(in.Role)
		if role == "" {
			role = "anonymous"
		}
		data = map[string]any{"allowed": false, "reason": "Insufficient role", "role": role}
	case view.adminOnly:
		payload, err := s.compute(ctx, view, rng)
		if err != nil {
			return nil, err
		}
		payload["allowed"] = true
		data = payload
	default:
		data, err = s.cached(ctx, view, rng)
		if err != nil {
			return nil, err
		}
	}

	data, err = normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize view %s: %w", view.ID, err)
	}
	if strings.TrimSpace(in.Select) != "" {
		data, err = s.jems.Evaluate(in.Select, data)
		if err != nil {
			return nil, apperrors.ValidationField("select", "Invalid select expression").WithDetail("details", err.Error())
		}
	}
	return &ViewData{View: view.ViewSummary, Data: data}, nil
}

func (s *ViewsService) cacheEnabled() bool { return s.cache != nil && s.cacheTTL > 0 }

func viewCacheKey(id string, r mockdata.Range) string {
	return "view:" + id + ":" + r.Key()
}

func (s *ViewsService) cached(ctx context.Context, view *viewDefinition, r mockdata.Range) (any, error) {
	key := viewCacheKey(view.ID, r)
	if s.cacheEnabled() {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.warn(ctx, "view cache read failed", "view", view.ID, "error", err)
		case raw != nil:
			var hit any
			if jsonErr := json.Unmarshal(raw, &hit); jsonErr == nil {
				return hit, nil
			}
		}
	}

	payload, err := s.compute(ctx, view, r)
	if err != nil {
		return nil, err
	}
	if s.cacheEnabled() {
		raw, err := json.Marshal(payload)
		if err == nil {
			err = s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
		if err != nil {
			s.warn(ctx, "view cache write failed", "view", view.ID, "error", err)
		}
	}
	return payload, nil
}

// compute fans out every source of the view concurrently.
func (s *ViewsService) compute(ctx context.Context, view *viewDefinition, r mockdata.Range) (map[string]any, error) {
	results := make([]any, len(view.outputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, out := range view.outputs {
		g.Go(func() error {
			v, err := s.fetch(gctx, out.source, r)
			if err != nil {
				return fmt.Errorf("source %s: %w", out.source, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to load view data")
	}

	payload := make(map[string]any, len(view.outputs)+1)
	for i, out := range view.outputs {
		payload[out.key] = results[i]
	}
	return payload, nil
}

func (s *ViewsService) fetch(ctx context.Context, source string, r mockdata.Range) (any, error) {
	switch {
	case source == "allowlist" && s.allowlist != nil:
		entries, err := s.allowlist.EnsureSeeded(ctx)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []domainauth.AllowlistEntry{}
		}
		return map[string]any{"entries": entries}, nil
	case source == "roleDistribution" && s.users != nil:
		return s.roleDistribution(ctx)
	}
	gen, ok := mockdata.Get(source)
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	return gen(ctx, r)
}

func (s *ViewsService) roleDistribution(ctx context.Context) (map[string]int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]int{
		string(domainauth.RoleUser):       0,
		string(domainauth.RoleAdmin):      0,
		string(domainauth.RoleSuperadmin): 0,
	}
	for _, u := range users {
		out[string(u.Role)]++
	}
	return out, nil
}

func (s *ViewsService) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

// normalize converts typed Go values into the generic JSON shapes JMESPath walks.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
