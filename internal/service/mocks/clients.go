package mocks

import (
	"context"

	"narravox-server/internal/clients/affinity"
	"narravox-server/internal/clients/narrative"
	"narravox-server/internal/models"
	"narravox-server/internal/ratelimit"
	"narravox-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockNarrativeClient is a mock type for the NarrativeClient type
type MockNarrativeClient struct {
	mock.Mock
}

func (_m *MockNarrativeClient) GenerateOpener(ctx context.Context, prompt, culturalContext string) (*narrative.Generation, error) {
	ret := _m.Called(ctx, prompt, culturalContext)

	var r0 *narrative.Generation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*narrative.Generation)
	}
	return r0, ret.Error(1)
}

func (_m *MockNarrativeClient) ContinueStory(ctx context.Context, history []models.StoryEntry, input, culturalContext string) (*narrative.Generation, error) {
	ret := _m.Called(ctx, history, input, culturalContext)

	var r0 *narrative.Generation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*narrative.Generation)
	}
	return r0, ret.Error(1)
}

func (_m *MockNarrativeClient) GenerateBranchingOptions(ctx context.Context, storyText, culturalContext string) ([]string, error) {
	ret := _m.Called(ctx, storyText, culturalContext)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

// MockAffinityClient is a mock type for the AffinityClient type
type MockAffinityClient struct {
	mock.Mock
}

func (_m *MockAffinityClient) BuildCulturalContext(ctx context.Context, text string) string {
	ret := _m.Called(ctx, text)
	return ret.String(0)
}

func (_m *MockAffinityClient) FetchAffinities(ctx context.Context, entities []string, domains []string) (*affinity.Result, error) {
	ret := _m.Called(ctx, entities, domains)

	var r0 *affinity.Result
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*affinity.Result)
	}
	return r0, ret.Error(1)
}

// MockLimiter is a mock type for the ratelimit.Limiter type
type MockLimiter struct {
	mock.Mock
}

func (_m *MockLimiter) Allow(ctx context.Context, userID string, policy ratelimit.Policy) (bool, error) {
	ret := _m.Called(ctx, userID, policy)
	return ret.Bool(0), ret.Error(1)
}

var (
	_ service.NarrativeClient = (*MockNarrativeClient)(nil)
	_ service.AffinityClient  = (*MockAffinityClient)(nil)
	_ ratelimit.Limiter       = (*MockLimiter)(nil)
)
