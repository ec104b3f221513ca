package catalog

import (
	md "github.com/russross/blackfriday/v2"
)

// GeneratorRef is the editor-facing view of a generator: the source
// travels to the editor so the workspace can live-preview generated
// code.
type GeneratorRef struct {
	Type      string `json:"type"`
	Generator string `json:"generator"`
}

// EditorPayload is everything the rendering collaborator needs to put up
// the editor for one registry load.
type EditorPayload struct {
	Blocks       []*Block                 `json:"blocks"`
	Max          map[string]int           `json:"max"`
	Categories   []*Category              `json:"categories"`
	Restrictions map[string][]Restriction `json:"restrictions"`
	Generators   []GeneratorRef           `json:"generators"`
	ToolboxXML   string                   `json:"toolboxXml"`

	// Tooltips maps block type to tooltip HTML.  Record tooltips are
	// Markdown.
	Tooltips map[string]string `json:"tooltips"`
}

// Payload assembles the editor payload.
func (r *Registry) Payload() *EditorPayload {
	gens := make([]GeneratorRef, 0, len(r.generators))
	for _, g := range r.Generators() {
		gens = append(gens, GeneratorRef{
			Type:      g.Type,
			Generator: g.Source,
		})
	}

	tips := make(map[string]string, len(r.Blocks))
	for _, b := range r.Blocks {
		if b.Tooltip == "" {
			continue
		}
		tips[b.Type] = string(md.Run([]byte(b.Tooltip)))
	}

	return &EditorPayload{
		Blocks:       r.Blocks,
		Max:          r.Max,
		Categories:   r.Categories,
		Restrictions: r.Restrictions,
		Generators:   gens,
		ToolboxXML:   r.ToolboxXML(),
		Tooltips:     tips,
	}
}
