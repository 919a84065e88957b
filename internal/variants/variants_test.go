package variants

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() FounderProfile {
	return FounderProfile{
		FounderName:  "Asha Patel",
		WhatBuilding: "supply-chain analytics",
		CompanyName:  "Chainsight",
		Industry:     "logistics",
		Traction:     "40% MoM growth",
	}
}

func TestGenerateAllCoversEveryStyle(t *testing.T) {
	t.Parallel()

	gen := GeneratorFunc(func(_ context.Context, prompt string) (Draft, error) {
		return Draft{Subject: "Hello", Body: prompt[:20]}, nil
	})

	drafts := GenerateAll(context.Background(), gen, testProfile())

	require.Len(t, drafts, len(Styles))
	for _, style := range Styles {
		assert.Contains(t, drafts, style)
		assert.Equal(t, "Hello", drafts[style].Subject)
	}
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	gen := GeneratorFunc(func(_ context.Context, prompt string) (Draft, error) {
		if strings.Contains(prompt, "**Metrics**") {
			return Draft{}, errors.New("model unavailable")
		}
		return Draft{Subject: "OK", Body: "fine"}, nil
	})

	drafts := GenerateAll(context.Background(), gen, testProfile())

	require.Len(t, drafts, len(Styles))
	assert.Equal(t, "Error", drafts["Metrics"].Subject)
	assert.Contains(t, drafts["Metrics"].Body, "model unavailable")
	for _, style := range []string{"Custom", "Business", "Personal", "Vision"} {
		assert.Equal(t, "OK", drafts[style].Subject, "style %s should be unaffected", style)
	}
}

func TestGenerateAllRecoversPanics(t *testing.T) {
	t.Parallel()

	gen := GeneratorFunc(func(_ context.Context, prompt string) (Draft, error) {
		if strings.Contains(prompt, "**Vision**") {
			panic("nil pointer in model client")
		}
		return Draft{Subject: "OK"}, nil
	})

	drafts := GenerateAll(context.Background(), gen, testProfile())

	require.Len(t, drafts, len(Styles))
	assert.Equal(t, "Error", drafts["Vision"].Subject)
	assert.Contains(t, drafts["Vision"].Body, "generation panicked")
}

func TestGenerateOneHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })

	// Ignores its context entirely; the fan-out must still time out or
	// observe cancellation on its own.
	gen := GeneratorFunc(func(context.Context, string) (Draft, error) {
		<-blocked
		return Draft{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	draft := generateOne(ctx, gen, "Custom", testProfile())
	assert.Equal(t, "Error", draft.Subject)
	assert.Contains(t, draft.Body, "context canceled")
}

func TestBuildPromptIncludesStyleAndProfile(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("Business", testProfile())

	assert.Contains(t, prompt, "**Business**")
	assert.Contains(t, prompt, styleInstructions["Business"])
	assert.Contains(t, prompt, "Asha Patel")
	assert.Contains(t, prompt, "Chainsight")
	assert.Contains(t, prompt, "40% MoM growth")
}
