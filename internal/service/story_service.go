package service

import (
	"context"
	"fmt"
	"strings"

	"narravox-server/internal/clients/affinity"
	"narravox-server/internal/clients/narrative"
	"narravox-server/internal/models"
	"narravox-server/internal/ratelimit"
	"narravox-server/internal/session"

	"go.uber.org/zap"
)

// NarrativeClient is the completion-API surface the orchestrator needs.
type NarrativeClient interface {
	GenerateOpener(ctx context.Context, prompt, culturalContext string) (*narrative.Generation, error)
	ContinueStory(ctx context.Context, history []models.StoryEntry, input, culturalContext string) (*narrative.Generation, error)
	GenerateBranchingOptions(ctx context.Context, storyText, culturalContext string) ([]string, error)
}

// AffinityClient is the cultural-recommendation surface the orchestrator
// needs. BuildCulturalContext swallows upstream failures and returns an
// empty string; FetchAffinities surfaces them to the caller.
type AffinityClient interface {
	BuildCulturalContext(ctx context.Context, text string) string
	FetchAffinities(ctx context.Context, entities []string, domains []string) (*affinity.Result, error)
}

// StoryService sequences the story turn operations over a Session.
type StoryService interface {
	StartStory(ctx context.Context, sess *session.Session, prompt string) (*models.StoryEntry, error)
	ContinueStory(ctx context.Context, sess *session.Session, input string, isBranchChoice bool) (*models.StoryEntry, error)
	GenerateBranchingOptions(ctx context.Context, sess *session.Session) ([]string, error)
	EnhanceCulture(ctx context.Context, sess *session.Session) (string, bool, error)
	BuildTasteProfile(ctx context.Context, sess *session.Session, rawPreferences map[string]string) (*models.TasteProfile, error)
	SurpriseStory(ctx context.Context, sess *session.Session) (*models.StoryEntry, error)
}

// Options tunes orchestration policy.
type Options struct {
	// RollbackUserEntryOnFailure removes the user entry appended by
	// ContinueStory when the narrative call fails. Off by default: the
	// user's input stays in history even though the AI reply failed,
	// preserving their effort at the cost of uneven turn accounting.
	RollbackUserEntryOnFailure bool
}

type storyServiceImpl struct {
	narrative NarrativeClient
	affinity  AffinityClient
	limiter   ratelimit.Limiter
	opts      Options
	logger    *zap.Logger
}

// NewStoryService creates the orchestrator.
func NewStoryService(narrativeClient NarrativeClient, affinityClient AffinityClient, limiter ratelimit.Limiter, opts Options, logger *zap.Logger) StoryService {
	return &storyServiceImpl{
		narrative: narrativeClient,
		affinity:  affinityClient,
		limiter:   limiter,
		opts:      opts,
		logger:    logger.Named("StoryService"),
	}
}

// StartStory validates and sanitizes the prompt, enriches it with
// cultural context (from the stored taste profile when present, else
// from the prompt text), generates the opener, and records the first
// turn. On failure only the session's error slot is touched.
func (s *storyServiceImpl) StartStory(ctx context.Context, sess *session.Session, prompt string) (*models.StoryEntry, error) {
	if s.narrative == nil || s.affinity == nil {
		return nil, ErrServiceUnavailable
	}
	if err := ValidateInput(prompt, MaxPromptLength); err != nil {
		return nil, err
	}

	sess.BeginOp()
	defer sess.EndOp()

	if err := s.allow(ctx, sess, ratelimit.PolicyStoryGeneration); err != nil {
		return nil, err
	}

	sanitized := SanitizeText(prompt)

	culturalContext := s.openerContext(ctx, sess, sanitized)
	if culturalContext != "" {
		sess.SetCulturalContext(mergeContext(sess.CulturalContext(), culturalContext))
		sess.AddCulturalExplanation(
			"Story Cultural Elements",
			fmt.Sprintf("Cultural affinities identified through taste analysis: %s", culturalContext),
		)
	}

	gen, err := s.narrative.GenerateOpener(ctx, sanitized, culturalContext)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues("narrative").Inc()
		sess.SetError(err.Error())
		return nil, err
	}

	sess.AppendEntry(sanitized, models.RoleUser)
	aiEntry := sess.AppendEntry(SanitizeText(gen.Text), models.RoleAI)
	sess.IncrementTurn()
	sess.MarkStarted()

	storiesStartedTotal.Inc()
	storyTurnsTotal.Inc()
	s.logger.Info("Story started",
		zap.String("session_id", sess.ID().String()),
		zap.Bool("enriched", culturalContext != ""),
		zap.Int("completion_tokens", gen.Usage.CompletionTokens),
	)
	return &aiEntry, nil
}

// openerContext builds the cultural context for StartStory. Preferences,
// when present, both steer the affinity lookup and contribute a direct
// preference clause; affinity failures degrade to the preference clause
// or to no enrichment at all.
func (s *storyServiceImpl) openerContext(ctx context.Context, sess *session.Session, sanitizedPrompt string) string {
	if !sess.HasPreferences() {
		return s.affinity.BuildCulturalContext(ctx, sanitizedPrompt)
	}

	prefs := flattenPreferences(sess.Preferences())
	if len(prefs) == 0 {
		return s.affinity.BuildCulturalContext(ctx, sanitizedPrompt)
	}

	highlighted := prefs
	if len(highlighted) > 8 {
		highlighted = highlighted[:8]
	}
	enhancedPrompt := fmt.Sprintf("%s (Cultural preferences: %s)", sanitizedPrompt, strings.Join(highlighted, ", "))

	culturalContext := s.affinity.BuildCulturalContext(ctx, enhancedPrompt)
	culturalContext = mergeContext(culturalContext, preferenceContext(prefs))

	sess.AddCulturalExplanation(
		"Taste Profile Integration",
		fmt.Sprintf("Enhanced story with your cultural preferences: %s", strings.Join(highlighted, ", ")),
	)
	return culturalContext
}

// ContinueStory advances the story by one turn. The user entry (when the
// input is not a branch choice) is appended before the narrative call and
// is kept on failure unless RollbackUserEntryOnFailure is set.
func (s *storyServiceImpl) ContinueStory(ctx context.Context, sess *session.Session, input string, isBranchChoice bool) (*models.StoryEntry, error) {
	if s.narrative == nil {
		return nil, ErrServiceUnavailable
	}
	if err := ValidateInput(input, MaxPromptLength); err != nil {
		return nil, err
	}

	sess.BeginOp()
	defer sess.EndOp()

	if sess.IsComplete() {
		return nil, ErrStoryComplete
	}
	if err := s.allow(ctx, sess, ratelimit.PolicyStoryContinuation); err != nil {
		return nil, err
	}

	sanitized := SanitizeText(input)

	history := sess.Entries()
	var appendedUser bool
	if !isBranchChoice {
		sess.AppendEntry(sanitized, models.RoleUser)
		appendedUser = true
	}

	gen, err := s.narrative.ContinueStory(ctx, history, sanitized, sess.CulturalContext())
	if err != nil {
		upstreamErrorsTotal.WithLabelValues("narrative").Inc()
		sess.SetError(err.Error())
		if appendedUser && s.opts.RollbackUserEntryOnFailure {
			sess.DropLastEntry(models.RoleUser)
		}
		return nil, err
	}

	aiEntry := sess.AppendEntry(SanitizeText(gen.Text), models.RoleAI)
	sess.IncrementTurn()
	sess.ClearBranchingOptions()

	// Opportunistic enrichment from the new input; failures never
	// surface to the user.
	s.enhanceFromInput(ctx, sess, sanitized)

	storyTurnsTotal.Inc()
	s.logger.Info("Story continued",
		zap.String("session_id", sess.ID().String()),
		zap.Bool("branch_choice", isBranchChoice),
		zap.Int("turn", sess.TurnCount()),
	)
	return &aiEntry, nil
}

// enhanceFromInput merges cultural context discovered in fresh user input
// into the session. The merge is idempotent: a clause already present is
// skipped.
func (s *storyServiceImpl) enhanceFromInput(ctx context.Context, sess *session.Session, input string) {
	newContext := s.affinity.BuildCulturalContext(ctx, input)
	if newContext == "" {
		return
	}

	current := sess.CulturalContext()
	merged := mergeContext(current, newContext)
	if merged == current {
		return
	}

	sess.SetCulturalContext(merged)
	sess.AddCulturalExplanation(
		fmt.Sprintf("Auto-Discovery (Turn %d)", sess.TurnCount()),
		fmt.Sprintf("Cultural elements from your input: %s", newContext),
	)
}

// GenerateBranchingOptions replaces the session's cached options with a
// fresh triple. Not rate limited; reads the existing story text so no
// input validation applies.
func (s *storyServiceImpl) GenerateBranchingOptions(ctx context.Context, sess *session.Session) ([]string, error) {
	if s.narrative == nil {
		return nil, ErrServiceUnavailable
	}

	sess.BeginOp()
	defer sess.EndOp()

	options, err := s.narrative.GenerateBranchingOptions(ctx, sess.StoryText(), sess.CulturalContext())
	if err != nil {
		upstreamErrorsTotal.WithLabelValues("narrative").Inc()
		sess.SetError(err.Error())
		return nil, err
	}

	sess.SetBranchingOptions(options)
	return options, nil
}

// EnhanceCulture derives cultural context from the last two entries and
// merges it when it is new. The boolean result distinguishes a discovery
// from an informational no-op.
func (s *storyServiceImpl) EnhanceCulture(ctx context.Context, sess *session.Session) (string, bool, error) {
	if s.affinity == nil {
		return "", false, ErrServiceUnavailable
	}

	sess.BeginOp()
	defer sess.EndOp()

	recent := sess.RecentText(2)
	newContext := s.affinity.BuildCulturalContext(ctx, recent)
	if newContext == "" {
		return "", false, nil
	}

	current := sess.CulturalContext()
	merged := mergeContext(current, newContext)
	if merged == current {
		return "", false, nil
	}

	sess.SetCulturalContext(merged)
	sess.AddCulturalExplanation(
		fmt.Sprintf("Cultural Discovery (Turn %d)", sess.TurnCount()),
		fmt.Sprintf("New cultural connections found: %s", newContext),
	)
	return newContext, true, nil
}

// BuildTasteProfile sanitizes the raw comma-separated preferences, runs
// the affinity lookup over their union, and stores the resulting profile.
// When the lookup fails entirely the suggestions are generated offline
// from the preferences alone.
func (s *storyServiceImpl) BuildTasteProfile(ctx context.Context, sess *session.Session, rawPreferences map[string]string) (*models.TasteProfile, error) {
	if s.affinity == nil {
		return nil, ErrServiceUnavailable
	}

	sess.BeginOp()
	defer sess.EndOp()

	if err := s.allow(ctx, sess, ratelimit.PolicyProfileBuilding); err != nil {
		return nil, err
	}

	preferences := make(map[string][]string, len(models.PreferenceCategories))
	for _, category := range models.PreferenceCategories {
		preferences[category] = sanitizePreferenceList(rawPreferences[category])
	}

	entities := flattenPreferences(preferences)
	if len(entities) == 0 {
		return nil, &ValidationError{Reason: "no valid preferences provided"}
	}
	if len(entities) > 10 {
		entities = entities[:10]
	}

	profile := models.TasteProfile{Preferences: preferences}

	result, err := s.affinity.FetchAffinities(ctx, entities, nil)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues("affinity").Inc()
		s.logger.Warn("Affinity lookup failed, building offline profile", zap.Error(err))
		profile.Suggestions = preferenceSuggestions(preferences)
		profile.Source = models.ProfileSourcePreferences
	} else {
		enrichmentTotal.WithLabelValues(string(result.Source)).Inc()
		profile.Suggestions = storySuggestions(result)
		profile.Source = models.ProfileSourceAffinityAPI
	}

	sess.SetTasteProfile(profile)
	return &profile, nil
}

// SurpriseStory starts a story from a random canned prompt.
func (s *storyServiceImpl) SurpriseStory(ctx context.Context, sess *session.Session) (*models.StoryEntry, error) {
	return s.StartStory(ctx, sess, randomSurprisePrompt())
}

func (s *storyServiceImpl) allow(ctx context.Context, sess *session.Session, policy ratelimit.Policy) error {
	allowed, err := s.limiter.Allow(ctx, sess.ID().String(), policy)
	if err != nil {
		// A broken ledger backend must not take the product down; the
		// call proceeds unlimited.
		s.logger.Error("Rate-limit check failed, allowing request", zap.Error(err), zap.String("action", policy.Action))
		return nil
	}
	if !allowed {
		rateLimitRejectionsTotal.WithLabelValues(policy.Action).Inc()
		return ErrRateLimited
	}
	return nil
}

// mergeContext folds the addition into the context clause by clause
// (clauses are the "; "-separated segments), skipping clauses already
// present. The context grows monotonically and a partially overlapping
// multi-clause addition never duplicates the shared part.
func mergeContext(current, addition string) string {
	if addition == "" {
		return current
	}
	if current == "" {
		return addition
	}

	existing := make(map[string]struct{})
	for _, clause := range strings.Split(current, "; ") {
		existing[clause] = struct{}{}
	}

	merged := current
	for _, clause := range strings.Split(addition, "; ") {
		if _, dup := existing[clause]; dup {
			continue
		}
		existing[clause] = struct{}{}
		merged += "; " + clause
	}
	return merged
}

func flattenPreferences(preferences map[string][]string) []string {
	var all []string
	for _, category := range models.PreferenceCategories {
		all = append(all, preferences[category]...)
	}
	return all
}

func sanitizePreferenceList(raw string) []string {
	var sanitized []string
	for _, pref := range strings.Split(raw, ",") {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if err := ValidateInput(pref, MaxPreferenceLength); err != nil {
			continue
		}
		sanitized = append(sanitized, SanitizeText(pref))
	}
	return sanitized
}
