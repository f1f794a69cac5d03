// Package api is the thin public surface over the store and search
// engine (spec §6.3): two operations, search and inspect_asset, both
// returning a shaped response rather than a Go error. Every lower-layer
// failure (missing store, unreadable path, absent index data) is
// folded into a response field per the error taxonomy in spec §7 —
// callers never see a panic or a raw error bubble out of this package.
package api

import (
	"context"
	"strings"

	"github.com/bradenleague/ueassetindex/schema"
	"github.com/bradenleague/ueassetindex/search"
	"github.com/bradenleague/ueassetindex/store"
)

// DefaultSearchLimit is applied when the caller passes limit <= 0
// (spec §6.3 "limit?: int=20").
const DefaultSearchLimit = 20

// API wraps a Store and a search.Engine. A nil store models the
// "not built yet" condition (spec §7): every operation degrades to a
// shaped error response instead of touching a nil pointer.
type API struct {
	store  *store.Store
	engine *search.Engine
}

// New builds an API. store may be nil if the project has not been
// indexed yet; engine should be nil in that case too.
func New(s *store.Store, engine *search.Engine) *API {
	return &API{store: s, engine: engine}
}

func notBuiltYet(query string) *search.Response {
	return &search.Response{
		Query: query,
		Error: "knowledge store has not been built for this project yet; run the indexer first",
	}
}

// Search runs a query through the search engine, shaping any failure
// into resp.Error rather than returning one (spec §6.3, §7). searchType
// is one of the search.Mode string values ("auto", "tags", "inherits",
// "trace", "refs", "name", "semantic"); an empty or unrecognized value
// falls back to auto-routing.
func (a *API) Search(ctx context.Context, query string, searchType string, assetTypes []string, limit int) *search.Response {
	if a == nil || a.store == nil || a.engine == nil {
		return notBuiltYet(query)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return a.engine.Search(ctx, query, resolveMode(searchType), assetTypes, limit)
}

func resolveMode(searchType string) search.Mode {
	switch search.Mode(strings.ToLower(strings.TrimSpace(searchType))) {
	case search.ModeTags:
		return search.ModeTags
	case search.ModeInherits:
		return search.ModeInherits
	case search.ModeTrace:
		return search.ModeTrace
	case search.ModeRefs:
		return search.ModeRefs
	case search.ModeName:
		return search.ModeName
	case search.ModeSemantic:
		return search.ModeSemantic
	default:
		return search.ModeAuto
	}
}

// InspectOptions mirrors spec §6.3's inspect_asset opts: summarize
// trims to the primary summary doc, typeOnly returns only the asset's
// type, detail="graph" narrows to blueprint-graph docs.
type InspectOptions struct {
	Summarize bool
	TypeOnly  bool
	Detail    string
}

// InspectDoc is one chunk of an asset's indexed knowledge.
type InspectDoc struct {
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Text          string         `json:"text"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ReferencesOut []string       `json:"references_out,omitempty"`
}

// InspectResponse is the structured result of InspectAsset. On failure
// Error (and usually Hint) is set; otherwise Found is true and Docs holds
// the selected chunks (left empty for a type_only request).
type InspectResponse struct {
	Path      string       `json:"path"`
	Found     bool         `json:"found"`
	AssetType string       `json:"asset_type,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	Docs      []InspectDoc `json:"docs,omitempty"`
	Error     string       `json:"error,omitempty"`
	Hint      string       `json:"hint,omitempty"`
}

// InspectAsset fetches every indexed doc chunk for path and shapes it
// according to opts, the Go-native equivalent of inspect_asset's
// summarize/type_only/detail dispatch (spec §6.3). It never returns an
// error; failures are carried in resp.Error (spec §7).
func (a *API) InspectAsset(ctx context.Context, path string, opts InspectOptions) *InspectResponse {
	if a == nil || a.store == nil {
		return &InspectResponse{
			Path:  path,
			Error: "knowledge store has not been built for this project yet; run the indexer first",
		}
	}
	if strings.TrimSpace(path) == "" {
		return &InspectResponse{Error: "path cannot be empty"}
	}

	docs, err := a.store.GetDocsByPath(ctx, path)
	if err != nil {
		return &InspectResponse{
			Path:  path,
			Error: "failed to read index: " + err.Error(),
		}
	}
	if len(docs) == 0 {
		return &InspectResponse{
			Path:  path,
			Found: false,
			Error: "asset not found in index",
			Hint:  "run the indexer over this project, or check the path is a /Game or plugin-mounted asset path",
		}
	}

	primary := docs[0]
	resp := &InspectResponse{Path: path, Found: true, AssetType: primary.AssetType}

	if opts.TypeOnly {
		resp.Detail = "type_only"
		return resp
	}

	if opts.Detail == "graph" {
		var graphDocs []*schema.DocChunk
		for _, d := range docs {
			if d.Type == schema.TypeBPGraphSummary {
				graphDocs = append(graphDocs, d)
			}
		}
		if len(graphDocs) == 0 {
			resp.Found = false
			resp.Error = "no blueprint graph data indexed for this asset"
			resp.Hint = "graph detail is only available for Blueprint assets with indexed function graphs"
			return resp
		}
		resp.Detail = "graph"
		resp.Docs = toInspectDocs(graphDocs)
		return resp
	}

	if opts.Summarize {
		resp.Detail = "summary"
		resp.Docs = toInspectDocs(docs[:1])
		return resp
	}

	resp.Detail = "full"
	resp.Docs = toInspectDocs(docs)
	return resp
}

func toInspectDocs(docs []*schema.DocChunk) []InspectDoc {
	out := make([]InspectDoc, 0, len(docs))
	for _, d := range docs {
		out = append(out, InspectDoc{
			Type:          string(d.Type),
			Name:          d.Name,
			Text:          d.Text,
			Metadata:      d.Metadata,
			ReferencesOut: d.ReferencesOut,
		})
	}
	return out
}
