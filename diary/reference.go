package diary

import (
	"context"
	"strings"

	"github.com/tomasmach/himekuri/store"
)

const (
	// likedThreshold is the count of positively-rated diaries at which the
	// free tier shifts from curated templates to the user's own history.
	likedThreshold = 10
	// recentLikedCap bounds the liked-history reference block.
	recentLikedCap = 5
	// premiumSampleCap bounds the premium private-corpus sample.
	premiumSampleCap = 5
	// hybridTemplateCap bounds the template share of the gratitude hybrid.
	hybridTemplateCap = 3
	// hybridLikedCount is the fixed liked share of the gratitude hybrid.
	hybridLikedCount = 2
)

// premiumReference samples up to premiumSampleCap of the user's own diaries
// in the category, bumping each picked sample's usage counter. The bundle is
// passed to the prompt separately and never enters this block.
func (e *Engine) premiumReference(ctx context.Context, userID string, cat store.Category) (string, error) {
	samples, err := e.st.DiarySamples(ctx, userID, cat)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", nil
	}
	k := min(premiumSampleCap, len(samples))
	picked := make([]string, 0, k)
	for _, i := range e.perm(len(samples))[:k] {
		if err := e.st.IncrementSampleUsage(ctx, samples[i]); err != nil {
			return "", err
		}
		picked = append(picked, samples[i].Text)
	}
	return strings.Join(picked, "\n"), nil
}

// freeReference assembles the free-tier reference block: templates while the
// user has little positive signal, their own liked history once they have
// enough, and a shuffled template+history hybrid for the thank-you category.
func (e *Engine) freeReference(ctx context.Context, userID string, cat store.Category) (string, error) {
	liked, err := e.st.LikedDiaries(ctx, userID, cat)
	if err != nil {
		return "", err
	}

	switch {
	case cat == store.CategoryOrei && len(liked) >= likedThreshold:
		return e.hybridReference(ctx, cat, liked)
	case len(liked) >= likedThreshold:
		// LikedDiaries is most-recent-first already.
		texts := make([]string, 0, recentLikedCap)
		for _, f := range liked[:recentLikedCap] {
			texts = append(texts, f.Text)
		}
		return strings.Join(texts, "\n"), nil
	default:
		return e.templateReference(ctx, cat, 0)
	}
}

// templateReference picks one random variant per template section,
// incrementing each picked snippet's usage counter. A non-zero limit stops
// after that many sections.
func (e *Engine) templateReference(ctx context.Context, cat store.Category, limit int) (string, error) {
	picked, err := e.pickTemplates(ctx, cat, limit)
	if err != nil {
		return "", err
	}
	return strings.Join(picked, "\n"), nil
}

func (e *Engine) pickTemplates(ctx context.Context, cat store.Category, limit int) ([]string, error) {
	sections, err := e.st.Templates(ctx, cat)
	if err != nil {
		return nil, err
	}
	var picked []string
	for _, variants := range sections {
		if len(variants) == 0 {
			continue
		}
		tr := variants[e.intN(len(variants))]
		if err := e.st.IncrementTemplateUsage(ctx, cat, tr); err != nil {
			return nil, err
		}
		picked = append(picked, tr.Text)
		if limit > 0 && len(picked) >= limit {
			break
		}
	}
	return picked, nil
}

// hybridReference mixes up to hybridTemplateCap template snippets with
// exactly hybridLikedCount random liked diaries and shuffles the combined
// order.
func (e *Engine) hybridReference(ctx context.Context, cat store.Category, liked []store.FeedbackRow) (string, error) {
	combined, err := e.pickTemplates(ctx, cat, hybridTemplateCap)
	if err != nil {
		return "", err
	}
	for _, i := range e.perm(len(liked))[:hybridLikedCount] {
		combined = append(combined, liked[i].Text)
	}
	e.shuffle(combined)
	return strings.Join(combined, "\n"), nil
}
