package services

import (
	"context"
	"fmt"
	"os"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Verifier implements the interface.
var _ driving.VerifyService = (*Verifier)(nil)

// Verifier runs read-only health checks over the persisted artifacts.
type Verifier struct {
	store     driven.FragmentStore
	index     driven.VectorIndex
	artifacts []string
}

// NewVerifier creates a verifier. artifacts lists the file paths whose
// existence the layout check asserts.
func NewVerifier(store driven.FragmentStore, index driven.VectorIndex, artifacts []string) *Verifier {
	return &Verifier{
		store:     store,
		index:     index,
		artifacts: artifacts,
	}
}

// Verify runs every check and returns all results, passed or failed.
func (v *Verifier) Verify(ctx context.Context) ([]driving.CheckResult, error) {
	logger.Section("Verification")

	checks := []driving.CheckResult{
		v.checkArtifacts(),
		v.checkIndexShape(),
		v.checkCrossReferences(ctx),
		v.checkReferenceLinkage(ctx),
	}

	for _, c := range checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		logger.Info("%s: %s (%s)", c.Name, status, c.Detail)
	}

	return checks, nil
}

// checkArtifacts asserts every persisted artifact file exists.
func (v *Verifier) checkArtifacts() driving.CheckResult {
	result := driving.CheckResult{Name: "storage artifacts", Passed: true}

	var total int64
	for _, path := range v.artifacts {
		info, err := os.Stat(path)
		if err != nil {
			result.Passed = false
			result.Detail = fmt.Sprintf("missing artifact: %s", path)
			return result
		}
		total += info.Size()
	}

	result.Detail = fmt.Sprintf("%d files, %d bytes", len(v.artifacts), total)
	return result
}

// checkIndexShape asserts the index has a usable dimension and count.
func (v *Verifier) checkIndexShape() driving.CheckResult {
	result := driving.CheckResult{Name: "index shape", Passed: true}

	if v.index.Dimensions() <= 0 {
		result.Passed = false
		result.Detail = fmt.Sprintf("invalid dimension %d", v.index.Dimensions())
		return result
	}
	if v.index.Count() != len(v.index.IDs()) {
		result.Passed = false
		result.Detail = fmt.Sprintf("declared count %d != payload %d",
			v.index.Count(), len(v.index.IDs()))
		return result
	}

	result.Detail = fmt.Sprintf("%d vectors, dimension %d", v.index.Count(), v.index.Dimensions())
	return result
}

// checkCrossReferences asserts embedding/fragment completeness both ways.
func (v *Verifier) checkCrossReferences(ctx context.Context) driving.CheckResult {
	result := driving.CheckResult{Name: "document/embedding cross-reference", Passed: true}

	if err := CrossValidate(ctx, v.store, v.index); err != nil {
		result.Passed = false
		result.Detail = err.Error()
		return result
	}

	result.Detail = fmt.Sprintf("%d embeddings resolve to exactly one fragment each", v.index.Count())
	return result
}

// checkReferenceLinkage asserts every reference's fragment ids resolve.
func (v *Verifier) checkReferenceLinkage(ctx context.Context) driving.CheckResult {
	result := driving.CheckResult{Name: "reference linkage", Passed: true}

	iter, err := v.store.AllReferences(ctx)
	if err != nil {
		result.Passed = false
		result.Detail = fmt.Sprintf("listing references: %v", err)
		return result
	}
	defer iter.Close()

	refs := 0
	for {
		ref, err := iter.Next()
		if err != nil {
			result.Passed = false
			result.Detail = fmt.Sprintf("iterating references: %v", err)
			return result
		}
		if ref == nil {
			break
		}
		refs++
		for _, id := range ref.FragmentIDs {
			if _, err := v.store.GetFragment(ctx, id); err != nil {
				result.Passed = false
				result.Detail = fmt.Sprintf("reference %s lists missing fragment %s", ref.RefID, id)
				return result
			}
		}
	}

	result.Detail = fmt.Sprintf("%d references, all fragment ids resolve", refs)
	return result
}

// CrossValidate asserts index/document consistency: every embedding id
// resolves to exactly one fragment, with no duplicates, and every stored
// fragment has exactly one embedding. Violations are consistency errors
// (domain.ErrCorruptIndex), not silent skips. It runs at engine open and
// again under `corpora verify`.
func CrossValidate(ctx context.Context, store driven.FragmentStore, index driven.VectorIndex) error {
	ids := index.IDs()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate embedding id %s", domain.ErrCorruptIndex, id)
		}
		seen[id] = struct{}{}

		if _, err := store.GetFragment(ctx, id); err != nil {
			return fmt.Errorf("%w: embedding id %s has no fragment: %v", domain.ErrCorruptIndex, id, err)
		}
	}

	fragments, err := store.FragmentCount(ctx)
	if err != nil {
		return fmt.Errorf("counting fragments: %w", err)
	}
	if fragments != len(ids) {
		return fmt.Errorf("%w: %d fragments but %d embeddings", domain.ErrCorruptIndex, fragments, len(ids))
	}

	return nil
}
