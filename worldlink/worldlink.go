// Package worldlink rewrites world locations and agent references embedded
// in chat text into clickable links for web clients.
//
// Malformed input is handled locally: anything the grammar cannot parse is
// rendered as the original, unmodified text.
package worldlink

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// secondlife://Region%20Name/128/128/23
	teleportRe = regexp.MustCompile(`secondlife://([^ /]+)/(\d+)/(\d+)(?:/(\d+))?`)

	// http(s)://maps.secondlife.com/secondlife/Region%20Name/128/128/23
	mapRe = regexp.MustCompile(`https?://maps\.secondlife\.com/secondlife/([^ /]+)/(\d+)/(\d+)(?:/(\d+))?`)

	// secondlife:///app/agent/<uuid>/about
	agentRe = regexp.MustCompile(`secondlife:///app/agent/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})/about`)
)

// Rewriter implements collab.LinkRewriter with a fixed grammar of world
// link shapes.
type Rewriter struct{}

// New creates a link rewriter.
func New() *Rewriter {
	return &Rewriter{}
}

// Rewrite replaces the known link shapes with anchor tags. It never fails;
// unrecognized or unparseable fragments stay as they are.
func (rw *Rewriter) Rewrite(_ context.Context, text, _ string) (string, error) {
	out := agentRe.ReplaceAllString(text,
		`<a href="secondlife:///app/agent/$1/about" class="agent-link">$1</a>`)

	out = mapRe.ReplaceAllStringFunc(out, rewriteLocation)

	// Teleport URIs come last: map URLs already handled above and the
	// three-slash agent form never matches this two-slash pattern.
	out = teleportRe.ReplaceAllStringFunc(out, rewriteLocation)

	return out, nil
}

// rewriteLocation turns one matched location into a map anchor. Either
// location pattern feeds it; both expose region and coordinates in the
// same group positions.
func rewriteLocation(match string) string {
	var groups []string
	if strings.HasPrefix(match, "secondlife://") {
		groups = teleportRe.FindStringSubmatch(match)
	} else {
		groups = mapRe.FindStringSubmatch(match)
	}
	if groups == nil {
		return match
	}

	region, err := url.PathUnescape(groups[1])
	if err != nil {
		return match
	}

	x, y := groups[2], groups[3]
	z := groups[4]
	if z == "" {
		z = "0"
	}

	href := fmt.Sprintf("http://maps.secondlife.com/secondlife/%s/%s/%s/%s",
		url.PathEscape(region), x, y, z)
	label := fmt.Sprintf("%s (%s,%s,%s)", region, x, y, z)
	return fmt.Sprintf(`<a href="%s" class="map-link">%s</a>`, href, label)
}
