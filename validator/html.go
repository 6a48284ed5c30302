/*
 * Copyright 2024 The Herd Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package validator

import (
	"bytes"
	"strings"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/str"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// relaxedTags lists the tags kept by a non text-only sanitizer and their allowed attributes.
var relaxedTags = map[string][]string{
	"a": {"href", "title"}, "b": nil, "blockquote": {"cite"}, "br": nil,
	"caption": nil, "cite": nil, "code": nil, "col": {"span", "width"},
	"colgroup": {"span", "width"}, "dd": nil, "div": nil, "dl": nil, "dt": nil,
	"em": nil, "h1": nil, "h2": nil, "h3": nil, "h4": nil, "h5": nil, "h6": nil,
	"i": nil, "img": {"align", "alt", "height", "src", "title", "width"},
	"li": nil, "ol": {"start", "type"}, "p": nil, "pre": nil, "q": {"cite"},
	"small": nil, "span": nil, "strike": nil, "strong": nil, "sub": nil, "sup": nil,
	"table": {"summary", "width"}, "tbody": nil, "td": {"abbr", "axis", "colspan", "rowspan", "width"},
	"tfoot": nil, "th": {"abbr", "axis", "colspan", "rowspan", "width"},
	"thead": nil, "tr": nil, "u": nil, "ul": {"type"},
}

// urlProtocols restricts link attributes.
var urlProtocols = map[string][]string{
	"href": {"ftp:", "http:", "https:", "mailto:"},
	"src":  {"http:", "https:"},
	"cite": {"http:", "https:"},
}

// dropped elements lose their content too.
var dropped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Embed: true, atom.Noscript: true, atom.Template: true, atom.Head: true,
}

// HTMLSanitize cleans string values. textOnly strips every tag and keeps escaped text;
// otherwise a relaxed set of formatting tags survives with safe attributes only.
func HTMLSanitize(textOnly bool) types.ParamValidator {
	return htmlSanitize{textOnly: textOnly}
}

type htmlSanitize struct {
	textOnly bool
}

func (h htmlSanitize) Name() string {
	return "HTMLSanitize"
}

func (h htmlSanitize) Validate(param *types.ActionParam, value interface{}) bool {
	return true
}

func (h htmlSanitize) Filter(param *types.ActionParam, value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return Sanitize(s, h.textOnly)
}

// Sanitize cleans an HTML fragment.
func Sanitize(s string, textOnly bool) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return html.EscapeString(s)
	}
	out := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		clean(out, n, textOnly)
	}
	var buf bytes.Buffer
	for c := out.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func clean(parent, n *html.Node, textOnly bool) {
	switch n.Type {
	case html.TextNode:
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.Data})
	case html.ElementNode:
		if dropped[n.DataAtom] {
			return
		}
		target := parent
		if allowed, ok := relaxedTags[n.Data]; ok && !textOnly {
			target = &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom, Attr: keepAttrs(n.Attr, allowed)}
			parent.AppendChild(target)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clean(target, c, textOnly)
		}
	}
}

func keepAttrs(attrs []html.Attribute, allowed []string) []html.Attribute {
	var kept []html.Attribute
	for _, a := range attrs {
		if a.Namespace != "" || !str.Contains(allowed, a.Key) {
			continue
		}
		if protocols, ok := urlProtocols[a.Key]; ok && !hasProtocol(a.Val, protocols) {
			continue
		}
		kept = append(kept, html.Attribute{Key: a.Key, Val: a.Val})
	}
	return kept
}

func hasProtocol(v string, protocols []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range protocols {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}
