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

package route

import (
	"regexp"
	"strings"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/str"
)

// MatchedRoute is a route that matched a URI, with its captured parameters.
type MatchedRoute struct {
	Route *types.RouteDefinition
	// Handler is whatever was registered with the route.
	Handler    interface{}
	Parameters types.Pairs
}

// Matcher tests route definitions against one URI.
type Matcher interface {
	// Match returns nil when the route does not match. With matchOnly no parameters are captured.
	Match(route *types.RouteDefinition, matchOnly bool) *MatchedRoute
}

// Matchers holds both strategies for one URI and picks per route.
type Matchers struct {
	fast  *FastMatcher
	regex *RegexMatcher
}

// NewMatchers prepares both matchers for uri.
func NewMatchers(uri URI) *Matchers {
	return &Matchers{fast: NewFastMatcher(uri), regex: NewRegexMatcher(uri)}
}

// Match dispatches to the fast or the regex matcher depending on the route.
func (m *Matchers) Match(route *types.RouteDefinition, matchOnly bool) *MatchedRoute {
	if route.FastRoute {
		return m.fast.Match(route, matchOnly)
	}
	return m.regex.Match(route, matchOnly)
}

// MatchOnly reports whether route matches.
func (m *Matchers) MatchOnly(route *types.RouteDefinition) bool {
	return m.Match(route, true) != nil
}

// matchEntry answers for entry routes, which match the root path "/" and
// nothing else whatever their pattern. ok is false for other routes.
func matchEntry(uri URI, route *types.RouteDefinition) (mr *MatchedRoute, ok bool) {
	if !route.Entry {
		return nil, false
	}
	if uri.Path == "/" {
		return &MatchedRoute{Route: route}, true
	}
	return nil, true
}

// FastMatcher matches segment patterns.
type FastMatcher struct {
	uri      URI
	segments []string
}

// NewFastMatcher splits the uri path once for all routes.
func NewFastMatcher(uri URI) *FastMatcher {
	return &FastMatcher{uri: uri, segments: str.SplitPath(uri.Path)}
}

func (m *FastMatcher) Match(route *types.RouteDefinition, matchOnly bool) *MatchedRoute {
	if mr, ok := matchEntry(m.uri, route); ok {
		return mr
	}
	if route.Path == "" {
		return nil
	}

	var params types.Pairs
	routeSegments := str.SplitPath(route.Path)
	for i, seg := range routeSegments {
		if strings.HasPrefix(seg, "**:") {
			if !matchOnly {
				var rest []string
				if i < len(m.segments) {
					rest = m.segments[i:]
				}
				params = append(params, types.Pair{Key: seg[3:], Value: strings.Join(rest, "/")})
			}
			break
		}
		if i >= len(m.segments) {
			return nil
		}
		switch {
		case strings.HasPrefix(seg, "*"):
		case strings.HasPrefix(seg, ":"):
			if !matchOnly {
				params = append(params, types.Pair{Key: seg[1:], Value: m.segments[i]})
			}
		case seg != m.segments[i]:
			return nil
		}
	}
	return &MatchedRoute{Route: route, Parameters: params}
}

// RegexMatcher matches regular expression routes.
type RegexMatcher struct {
	uri  URI
	path string
}

// NewRegexMatcher prepares uri for regex matching.
func NewRegexMatcher(uri URI) *RegexMatcher {
	return &RegexMatcher{uri: uri, path: str.StripLeadingRepeats(uri.Path, '/')}
}

func (m *RegexMatcher) Match(route *types.RouteDefinition, matchOnly bool) *MatchedRoute {
	if mr, ok := matchEntry(m.uri, route); ok {
		return mr
	}
	if route.Path == "" {
		return nil
	}

	var domainMatch []string
	var domainPattern *regexp.Regexp
	if route.Domain != "" {
		p, err := CompilePattern(route.Domain)
		if err != nil {
			return nil
		}
		if domainMatch = p.FindStringSubmatch(m.uri.Host); domainMatch == nil {
			return nil
		}
		domainPattern = p
	}

	pathPattern, err := CompilePattern(route.Path)
	if err != nil {
		return nil
	}
	pathMatch := pathPattern.FindStringSubmatch(m.path)
	if pathMatch == nil {
		return nil
	}
	if matchOnly {
		return &MatchedRoute{Route: route}
	}

	var params types.Pairs
	if domainPattern != nil {
		params = appendGroups(params, domainPattern, domainMatch)
	}
	params = appendGroups(params, pathPattern, pathMatch)
	return &MatchedRoute{Route: route, Parameters: params}
}

func appendGroups(params types.Pairs, p *regexp.Regexp, match []string) types.Pairs {
	for i, name := range p.SubexpNames() {
		if name == "" || i == 0 {
			continue
		}
		params = append(params, types.Pair{Key: name, Value: match[i]})
	}
	return params
}

var (
	angleGroup   = regexp.MustCompile(`\(\?<([a-zA-Z][a-zA-Z0-9_]*)>`)
	patternCache sync.Map
)

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// CompilePattern compiles a route pattern, accepting `(?<name>...)` groups, and caches the outcome.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if v, ok := patternCache.Load(pattern); ok {
		c := v.(compiledPattern)
		return c.re, c.err
	}
	re, err := regexp.Compile(angleGroup.ReplaceAllString(pattern, "(?P<$1>"))
	v, _ := patternCache.LoadOrStore(pattern, compiledPattern{re: re, err: err})
	c := v.(compiledPattern)
	return c.re, c.err
}
