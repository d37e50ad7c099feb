// Package integration implements the declarative rewriter framework
// (spec.md §4.10, C12) third-party integrations plug into: attribute
// rewriters, script rewriters, and optional HTML post-processors, wired up
// through a single IntegrationRegistration per integration.
package integration

import "net/http"

// RewriteAction is the result of an attribute or script rewrite decision:
// either Keep the value unchanged, or Replace it with NewValue.
type RewriteAction struct {
	Replace  bool
	NewValue string
}

// Keep leaves the value unchanged.
func Keep() RewriteAction { return RewriteAction{} }

// ReplaceWith swaps the value for newValue.
func ReplaceWith(newValue string) RewriteAction {
	return RewriteAction{Replace: true, NewValue: newValue}
}

// AttributeContext carries the identity an AttributeRewriter needs to
// decide how to rewrite one HTML attribute value.
type AttributeContext struct {
	AttributeName string
	RequestHost   string
	RequestScheme string
	OriginHost    string
}

// AttributeRewriter rewrites one HTML attribute's value, e.g. <script
// src="...">.
type AttributeRewriter interface {
	IntegrationID() string
	HandlesAttribute(name string) bool
	Rewrite(name, value string, ctx AttributeContext) RewriteAction
}

// ScriptContext carries the identity and per-document state a
// ScriptRewriter needs. IsLastInTextNode distinguishes a streaming
// fragment from a complete script body; DocumentState is a per-document
// bag integrations can use to accumulate state across script nodes (the
// RSC rewriter's own Document is one example of this shape, specialized
// to its own rewrite).
type ScriptContext struct {
	Selector         string
	RequestHost      string
	RequestScheme    string
	OriginHost       string
	IsLastInTextNode bool
	DocumentState    map[string]any
}

// ScriptRewriter rewrites the body of a <script> element matched by
// Selector (e.g. "script", `script#__NEXT_DATA__`).
type ScriptRewriter interface {
	IntegrationID() string
	Selector() string
	Rewrite(body string, ctx ScriptContext) RewriteAction
}

// PostProcessor runs once over the fully-buffered HTML document, after
// streaming rewrites, e.g. the RSC rewriter's Document.Finish.
type PostProcessor func(html string) string

// Registration is what an integration package exposes to register itself:
// an optional proxy handler for the integration's own routes (e.g.
// DataDome's SDK/signal-collection endpoints), plus any attribute/script
// rewriters and post-processors it contributes.
type Registration struct {
	ID                 string
	Proxy              http.Handler
	AttributeRewriters []AttributeRewriter
	ScriptRewriters    []ScriptRewriter
	PostProcessors     []PostProcessor
}

// Registry holds every registered integration and dispatches rewrite
// calls to the ones that handle a given attribute or script selector.
type Registry struct {
	registrations []Registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(reg Registration) {
	r.registrations = append(r.registrations, reg)
}

// RewriteAttribute runs every registered AttributeRewriter that handles
// name, in registration order, stopping at the first Replace.
func (r *Registry) RewriteAttribute(name, value string, ctx AttributeContext) RewriteAction {
	for _, reg := range r.registrations {
		for _, ar := range reg.AttributeRewriters {
			if !ar.HandlesAttribute(name) {
				continue
			}
			if action := ar.Rewrite(name, value, ctx); action.Replace {
				return action
			}
		}
	}
	return Keep()
}

// RewriteScript runs every registered ScriptRewriter whose Selector
// matches selector, in registration order, stopping at the first Replace.
func (r *Registry) RewriteScript(selector, body string, ctx ScriptContext) RewriteAction {
	ctx.Selector = selector
	for _, reg := range r.registrations {
		for _, sr := range reg.ScriptRewriters {
			if sr.Selector() != selector {
				continue
			}
			if action := sr.Rewrite(body, ctx); action.Replace {
				return action
			}
		}
	}
	return Keep()
}

// PostProcess runs every registered PostProcessor over html in
// registration order.
func (r *Registry) PostProcess(html string) string {
	for _, reg := range r.registrations {
		for _, pp := range reg.PostProcessors {
			html = pp(html)
		}
	}
	return html
}

// ProxyFor returns the integration with the given id's Proxy handler, if
// registered and non-nil.
func (r *Registry) ProxyFor(id string) (http.Handler, bool) {
	for _, reg := range r.registrations {
		if reg.ID == id && reg.Proxy != nil {
			return reg.Proxy, true
		}
	}
	return nil, false
}
