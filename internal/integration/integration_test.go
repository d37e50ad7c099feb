package integration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubAttr struct {
	id   string
	name string
	out  RewriteAction
}

func (s *stubAttr) IntegrationID() string         { return s.id }
func (s *stubAttr) HandlesAttribute(n string) bool { return n == s.name }
func (s *stubAttr) Rewrite(name, value string, ctx AttributeContext) RewriteAction {
	return s.out
}

type stubScript struct {
	id  string
	sel string
	out RewriteAction
}

func (s *stubScript) IntegrationID() string { return s.id }
func (s *stubScript) Selector() string      { return s.sel }
func (s *stubScript) Rewrite(body string, ctx ScriptContext) RewriteAction {
	return s.out
}

func TestRegistryRewriteAttributeFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Register(Registration{
		ID:                 "a",
		AttributeRewriters: []AttributeRewriter{&stubAttr{id: "a", name: "src", out: Keep()}},
	})
	r.Register(Registration{
		ID:                 "b",
		AttributeRewriters: []AttributeRewriter{&stubAttr{id: "b", name: "src", out: ReplaceWith("new")}},
	})

	action := r.RewriteAttribute("src", "old", AttributeContext{})
	require.True(t, action.Replace)
	require.Equal(t, "new", action.NewValue)
}

func TestRegistryRewriteAttributeNoHandlerKeeps(t *testing.T) {
	r := NewRegistry()
	action := r.RewriteAttribute("href", "old", AttributeContext{})
	require.False(t, action.Replace)
}

func TestRegistryRewriteScript(t *testing.T) {
	r := NewRegistry()
	r.Register(Registration{
		ID:              "c",
		ScriptRewriters: []ScriptRewriter{&stubScript{id: "c", sel: "script", out: ReplaceWith("rewritten")}},
	})

	action := r.RewriteScript("script", "body", ScriptContext{})
	require.True(t, action.Replace)
	require.Equal(t, "rewritten", action.NewValue)

	action = r.RewriteScript("script#other", "body", ScriptContext{})
	require.False(t, action.Replace)
}

func TestRegistryPostProcessChains(t *testing.T) {
	r := NewRegistry()
	r.Register(Registration{PostProcessors: []PostProcessor{
		func(html string) string { return html + "-1" },
	}})
	r.Register(Registration{PostProcessors: []PostProcessor{
		func(html string) string { return html + "-2" },
	}})

	require.Equal(t, "start-1-2", r.PostProcess("start"))
}

func TestRegistryProxyFor(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() {
		_, ok := r.ProxyFor("missing")
		require.False(t, ok)
	})
}
