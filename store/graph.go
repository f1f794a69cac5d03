package store

import (
	"context"
	"fmt"

	"github.com/bradenleague/ueassetindex/schema"
)

// ReferenceGraph is the BFS result of ExpandRefs (spec §4.3).
type ReferenceGraph struct {
	SeedID      string
	ForwardRefs map[string][]string
	ReverseRefs map[string][]string
	Nodes       map[string]*schema.DocChunk
	Depth       int
}

// Direction selects which edge direction(s) ExpandRefs walks.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
	DirectionBoth    Direction = "both"
)

// ExpandRefs performs a bounded BFS from doc_id over the edges table
// (spec §4.3). A node only enters the result if it has a backing
// document and, when type_filters is set, its type matches. The seed
// is always included if it exists.
func (s *Store) ExpandRefs(ctx context.Context, docID string, direction Direction, depth, maxNodes int, typeFilters []string) (*ReferenceGraph, error) {
	g := &ReferenceGraph{
		SeedID:      docID,
		ForwardRefs: map[string][]string{},
		ReverseRefs: map[string][]string{},
		Nodes:       map[string]*schema.DocChunk{},
		Depth:       depth,
	}
	visited := map[string]bool{docID: true}

	if seed, err := s.GetDoc(ctx, docID); err != nil {
		return nil, fmt.Errorf("expand_refs seed: %w", err)
	} else if seed != nil {
		g.Nodes[docID] = seed
	}

	typeSet := toSet(typeFilters)
	currentLevel := []string{docID}

	for d := 0; d < depth; d++ {
		var nextLevel []string

		for _, currentID := range currentLevel {
			if len(g.Nodes) >= maxNodes {
				break
			}

			if direction == DirectionForward || direction == DirectionBoth {
				refs, err := s.outgoingEdgeTargets(ctx, currentID)
				if err != nil {
					return nil, err
				}
				if len(refs) > 0 {
					g.ForwardRefs[currentID] = refs
				}
				for _, toID := range refs {
					if visited[toID] {
						continue
					}
					visited[toID] = true
					nextLevel = append(nextLevel, toID)
					if len(g.Nodes) >= maxNodes {
						continue
					}
					doc, err := s.GetDoc(ctx, toID)
					if err != nil {
						return nil, err
					}
					if doc != nil && matchesTypeFilter(doc.Type, typeSet) {
						g.Nodes[toID] = doc
					}
				}
			}

			if direction == DirectionReverse || direction == DirectionBoth {
				refs, err := s.incomingEdgeSources(ctx, currentID)
				if err != nil {
					return nil, err
				}
				if len(refs) > 0 {
					g.ReverseRefs[currentID] = append(g.ReverseRefs[currentID], refs...)
				}
				for _, fromID := range refs {
					if visited[fromID] {
						continue
					}
					visited[fromID] = true
					nextLevel = append(nextLevel, fromID)
					if len(g.Nodes) >= maxNodes {
						continue
					}
					doc, err := s.GetDoc(ctx, fromID)
					if err != nil {
						return nil, err
					}
					if doc != nil && matchesTypeFilter(doc.Type, typeSet) {
						g.Nodes[fromID] = doc
					}
				}
			}
		}

		currentLevel = nextLevel
		if len(currentLevel) == 0 {
			break
		}
	}

	return g, nil
}

func (s *Store) outgoingEdgeTargets(ctx context.Context, fromID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT to_id FROM edges WHERE from_id = ?`, fromID)
	if err != nil {
		return nil, fmt.Errorf("outgoing edges for %s: %w", fromID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) incomingEdgeSources(ctx context.Context, toID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT from_id FROM edges WHERE to_id = ?`, toID)
	if err != nil {
		return nil, fmt.Errorf("incoming edges for %s: %w", toID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func toSet(s []string) map[string]bool {
	if len(s) == 0 {
		return nil
	}
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[v] = true
	}
	return m
}

func matchesTypeFilter(t schema.Type, set map[string]bool) bool {
	if set == nil {
		return true
	}
	return set[string(t)]
}

// ChildResult is one hit from FindChildrenOf.
type ChildResult struct {
	Path      string
	Name      string
	AssetType string
	Depth     int
}

// FindChildrenOf performs a BFS over inherits_from edges in the reverse
// direction starting from parentIDs (which may mix class: and asset:
// IDs), recording first-seen depth per result and suppressing
// duplicates (spec §4.3, invariant 9).
func (s *Store) FindChildrenOf(ctx context.Context, parentIDs []string, maxDepth int) ([]ChildResult, error) {
	visited := map[string]bool{}
	for _, id := range parentIDs {
		visited[id] = true
	}
	depthOf := map[string]int{}
	currentLevel := append([]string{}, parentIDs...)

	for d := 1; d <= maxDepth; d++ {
		var nextLevel []string
		for _, parentID := range currentLevel {
			children, err := s.inheritsFromChildren(ctx, parentID)
			if err != nil {
				return nil, err
			}
			for _, childID := range children {
				if visited[childID] {
					continue
				}
				visited[childID] = true
				depthOf[childID] = d
				nextLevel = append(nextLevel, childID)
			}
		}
		currentLevel = nextLevel
		if len(currentLevel) == 0 {
			break
		}
	}

	var results []ChildResult
	for childID, depth := range depthOf {
		doc, err := s.GetDoc(ctx, childID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		results = append(results, ChildResult{
			Path:      doc.Path,
			Name:      doc.Name,
			AssetType: doc.AssetType,
			Depth:     depth,
		})
	}
	return results, nil
}

func (s *Store) inheritsFromChildren(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id FROM edges WHERE to_id = ? AND edge_type = 'inherits_from'`, parentID)
	if err != nil {
		return nil, fmt.Errorf("inherits_from children of %s: %w", parentID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ReferencingAsset is one hit from FindAssetsReferencing.
type ReferencingAsset struct {
	Path      string
	Name      string
	AssetType string
}

// FindAssetsReferencing unions lightweight_refs rows pointing at
// targetPath with docs rows carrying an outgoing edge into
// "asset:<targetPath>", deduplicated by path (spec §4.3).
func (s *Store) FindAssetsReferencing(ctx context.Context, targetPath string, limit int) ([]ReferencingAsset, error) {
	seen := map[string]bool{}
	var results []ReferencingAsset

	lwRows, err := s.db.QueryContext(ctx, `
		SELECT la.path, la.name, la.asset_type
		FROM lightweight_refs lr
		JOIN lightweight_assets la ON la.path = lr.asset_path
		WHERE lr.ref_path = ?
		LIMIT ?`, targetPath, limit)
	if err != nil {
		return nil, fmt.Errorf("find_assets_referencing lightweight: %w", err)
	}
	for lwRows.Next() {
		var r ReferencingAsset
		if err := lwRows.Scan(&r.Path, &r.Name, &r.AssetType); err != nil {
			lwRows.Close()
			return nil, err
		}
		if !seen[r.Path] {
			seen[r.Path] = true
			results = append(results, r)
		}
	}
	if err := lwRows.Err(); err != nil {
		lwRows.Close()
		return nil, err
	}
	lwRows.Close()

	if len(results) >= limit {
		return results[:limit], nil
	}

	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.path, d.name, d.asset_type
		FROM edges e
		JOIN docs d ON e.from_id = d.doc_id
		WHERE e.to_id = ?
		LIMIT ?`, "asset:"+targetPath, limit-len(results))
	if err != nil {
		return nil, fmt.Errorf("find_assets_referencing edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var r ReferencingAsset
		if err := edgeRows.Scan(&r.Path, &r.Name, &r.AssetType); err != nil {
			return nil, err
		}
		if !seen[r.Path] {
			seen[r.Path] = true
			results = append(results, r)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
