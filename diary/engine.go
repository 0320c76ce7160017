// Package diary assembles reference material and prompts for one generation
// request and runs it through the text-generation capability, applying tone
// normalization to the result.
package diary

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/tomasmach/himekuri/store"
)

// TextGenerator is the opaque generation capability.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Engine builds and runs generation requests.
type Engine struct {
	st  *store.Store
	gen TextGenerator

	// Rand, when set, replaces the global RNG for reference sampling.
	// Tests seed it for deterministic selection.
	Rand *rand.Rand
}

// NewEngine builds an Engine over the store and generation capability.
func NewEngine(st *store.Store, gen TextGenerator) *Engine {
	return &Engine{st: st, gen: gen}
}

func (e *Engine) intN(n int) int {
	if e.Rand != nil {
		return e.Rand.IntN(n)
	}
	return rand.IntN(n)
}

func (e *Engine) perm(n int) []int {
	if e.Rand != nil {
		return e.Rand.Perm(n)
	}
	return rand.Perm(n)
}

func (e *Engine) shuffle(s []string) {
	swap := func(i, j int) { s[i], s[j] = s[j], s[i] }
	if e.Rand != nil {
		e.Rand.Shuffle(len(s), swap)
	} else {
		rand.Shuffle(len(s), swap)
	}
}

// Generate produces one diary for the user in the given category. keywords
// is the premium one-shot keyword answer, empty for the free tier.
func (e *Engine) Generate(ctx context.Context, profile *store.PersonaProfile, cat store.Category, keywords string) (string, error) {
	if !profile.Complete() {
		return "", fmt.Errorf("incomplete profile for user %s", profile.UserID)
	}

	var system, prompt string
	if profile.PremiumApproved {
		bundle, err := e.st.PreferenceBundle(ctx, profile.UserID)
		if err != nil {
			return "", err
		}
		reference, err := e.premiumReference(ctx, profile.UserID, cat)
		if err != nil {
			return "", err
		}
		system = systemPromptPremium
		prompt = buildPremiumPrompt(profile, cat, bundle, keywords, reference)
	} else {
		reference, err := e.freeReference(ctx, profile.UserID, cat)
		if err != nil {
			return "", err
		}
		system = systemPromptFree
		prompt = buildFreePrompt(profile, cat, reference)
	}

	text, err := e.gen.Generate(ctx, system, prompt, generationTemperature)
	if err != nil {
		return "", err
	}
	return NormalizeAddress(text, profile.DisplayName), nil
}
