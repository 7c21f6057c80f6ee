// Package render resolves message text and template components against a
// data context.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"text/template/parse"
)

// Renderer renders tmpl against data.
type Renderer interface {
	Render(ctx context.Context, tmpl string, data map[string]interface{}) (string, error)
}

// TextRenderer renders Go text/template syntax, e.g. {{ .doc.customer_name }}.
type TextRenderer struct {
	funcs template.FuncMap
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{funcs: template.FuncMap{
		// json emits a value as a JSON literal, for templates that build JSON.
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"default": func(def, v interface{}) interface{} {
			if v == nil || v == "" {
				return def
			}
			return v
		},
		"orEmpty": orEmpty,
	}}
}

func orEmpty(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}

func (r *TextRenderer) Render(ctx context.Context, tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("message").Funcs(r.funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	for _, defined := range t.Templates() {
		if defined.Tree != nil {
			blankMissing(defined.Tree.Root)
		}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, withoutNils(data)); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// withoutNils copies data leaving out nil values, so a null field behaves
// like a missing one all the way down a chain such as .doc.customer.name.
func withoutNils(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch v := v.(type) {
		case nil:
		case map[string]interface{}:
			out[k] = withoutNils(v)
		default:
			out[k] = v
		}
	}
	return out
}

// blankMissing pipes every printing action through orEmpty, so a missing
// key or nil value prints as "" rather than "<no value>".
func blankMissing(node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			blankMissing(child)
		}
	case *parse.ActionNode:
		if len(n.Pipe.Decl) > 0 {
			return
		}
		ident := parse.NewIdentifier("orEmpty").SetPos(n.Pos)
		n.Pipe.Cmds = append(n.Pipe.Cmds, &parse.CommandNode{
			NodeType: parse.NodeCommand,
			Pos:      n.Pos,
			Args:     []parse.Node{ident},
		})
	case *parse.IfNode:
		blankMissing(n.List)
		blankMissing(n.ElseList)
	case *parse.RangeNode:
		blankMissing(n.List)
		blankMissing(n.ElseList)
	case *parse.WithNode:
		blankMissing(n.List)
		blankMissing(n.ElseList)
	}
}

// DocumentLoader fetches the business record a message refers to.
type DocumentLoader interface {
	Load(ctx context.Context, documentType, documentName string) (map[string]interface{}, error)
}

// StaticDocuments is a DocumentLoader over an in-memory map keyed by
// "type/name". Unknown documents load as nil.
type StaticDocuments map[string]map[string]interface{}

func (d StaticDocuments) Load(ctx context.Context, documentType, documentName string) (map[string]interface{}, error) {
	return d[documentType+"/"+documentName], nil
}
