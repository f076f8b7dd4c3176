// Package omeconfig renders the OvenMediaEngine Server.xml deployment
// descriptor from a template.
//
// The template is treated as opaque text: targeted tag bodies are spliced
// with operator-supplied values and every other byte is preserved. Nothing
// is parsed into a tree during rewriting.
package omeconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Params holds the values substituted into the template.
type Params struct {
	// Bind is the listen address written into the <Bind> section.
	Bind string

	// ServerIP is the public IP advertised at the root of the Server
	// block. Empty means "same as Bind".
	ServerIP string

	// Port and TLSPort are the signalling ports inside the bind section.
	Port    string
	TLSPort string

	// Username and Password fill the API credential tags. Both are
	// required to exist in the template.
	Username string
	Password string

	// AccessToken fills <AccessToken> tags when the target image
	// supports managers auth. Empty leaves the placeholder untouched.
	AccessToken string

	// ImageTag is the OME image tag used to decide whether the target
	// supports managers auth. Empty means current (supported).
	ImageTag string

	// OmitManagersAuth forces the managers-auth blocks to be stripped
	// regardless of the image tag.
	OmitManagersAuth bool
}

var (
	legacyBindOpen  = regexp.MustCompile(`<\s*Server\.bind\s*>`)
	legacyBindClose = regexp.MustCompile(`</\s*Server\.bind\s*>`)

	serverOpenRe = regexp.MustCompile(`<Server[^>]*>`)

	accessTokensRe   = regexp.MustCompile(`(?s)[ \t]*<AccessTokens>.*?</AccessTokens>\n?`)
	authenticationRe = regexp.MustCompile(`(?s)[ \t]*<Authentication>.*?</Authentication>\n?`)
	outputsRe        = regexp.MustCompile(`(?s)<Outputs>.*?</Outputs>`)
	outputProfilesRe = regexp.MustCompile(`(?s)<OutputProfiles>.*?</OutputProfiles>`)

	versionRe = regexp.MustCompile(`^v?(\d+)\.(\d+)`)
)

// Render substitutes the parameter set into the template and returns the
// rendered document. Any missing required tag aborts the whole render;
// optional tags are silently skipped.
func Render(template []byte, p Params) ([]byte, error) {
	bind := escape(p.Bind)
	serverIP := p.ServerIP
	if serverIP == "" {
		serverIP = p.Bind
	}

	text := string(template)

	// Very old templates wrap the bind section in <Server.bind>.
	// Normalize before any other rewrite so the scoped lookups below
	// see the current spelling.
	text = legacyBindOpen.ReplaceAllString(text, "<Bind>")
	text = legacyBindClose.ReplaceAllString(text, "</Bind>")

	text, err := replaceRootBindings(text, bind, escape(p.Port), escape(p.TLSPort))
	if err != nil {
		return nil, err
	}

	text, err = replaceRootIP(text, escape(serverIP))
	if err != nil {
		return nil, err
	}

	text = replaceControlBindings(text, bind)

	// Credentials are expected to exist somewhere in the document,
	// typically under <Authentication>.
	text, err = replaceFirst(text, "ID", escape(p.Username))
	if err != nil {
		return nil, err
	}
	text, err = replaceFirst(text, "Password", escape(p.Password))
	if err != nil {
		return nil, err
	}

	if SupportsManagersAuth(p.ImageTag) && !p.OmitManagersAuth {
		if p.AccessToken != "" {
			text = replaceAllLeaf(text, "AccessToken", escape(p.AccessToken))
		}
	} else {
		text = stripManagersAuth(text)
	}

	return []byte(text), nil
}

// SupportsManagersAuth reports whether the given OME image tag supports the
// managers API auth blocks. Tags below 0.16 predate the feature; tags that
// do not parse as versions (custom builds, "latest") are treated as
// unsupporting. An empty tag means the template's own version and is
// supported.
func SupportsManagersAuth(imageTag string) bool {
	if imageTag == "" {
		return true
	}

	m := versionRe.FindStringSubmatch(imageTag)
	if m == nil {
		return false
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return major > 0 || minor >= 16
}

// replaceFirst splices value into the first <tag>...</tag> occurrence.
// A missing open or close tag is fatal.
func replaceFirst(data, tag, value string) (string, error) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"

	start := strings.Index(data, open)
	if start == -1 {
		return "", fmt.Errorf("missing %s in template", open)
	}

	end := strings.Index(data[start:], close)
	if end == -1 {
		return "", fmt.Errorf("missing %s in template", close)
	}

	return data[:start+len(open)] + value + data[start+end:], nil
}

// replaceAllLeaf rewrites every <tag>text</tag> occurrence whose body has
// no child tags. Occurrences wrapping nested elements are left alone, and
// zero matches is not an error.
func replaceAllLeaf(data, tag, value string) string {
	re := regexp.MustCompile(`<` + tag + `>[^<]*</` + tag + `>`)
	return re.ReplaceAllStringFunc(data, func(string) string {
		return "<" + tag + ">" + value + "</" + tag + ">"
	})
}

// serverBody returns the content span of the root <Server> block.
func serverBody(text string) (start, end int, err error) {
	loc := serverOpenRe.FindStringIndex(text)
	if loc == nil {
		return 0, 0, fmt.Errorf("missing <Server> block in template")
	}

	close := strings.LastIndex(text, "</Server>")
	if close == -1 || close < loc[1] {
		return 0, 0, fmt.Errorf("missing </Server> in template")
	}

	return loc[1], close, nil
}

// replaceRootBindings rewrites the first <Bind> section inside the root
// Server block. Newer templates carry <Address> inside the bind body;
// older ones still use <IP>, and both spellings are accepted. Port and
// TLSPort stay required; their first occurrence may sit under a
// <Signalling> wrapper, which is fine.
func replaceRootBindings(text, addr, port, tlsPort string) (string, error) {
	bodyStart, bodyEnd, err := serverBody(text)
	if err != nil {
		return "", err
	}
	body := text[bodyStart:bodyEnd]

	// Legacy templates keep a leaf <Bind> inside <Modules><Control>;
	// the root bind section is the first occurrence outside <Modules>.
	var excluded [][2]int
	if span, ok := tagSpan(body, "Modules"); ok {
		excluded = append(excluded, span)
	}

	bindStart := -1
	for offset := 0; ; {
		idx := strings.Index(body[offset:], "<Bind>")
		if idx == -1 {
			break
		}
		idx += offset
		if !insideAny(idx, excluded) {
			bindStart = idx
			break
		}
		offset = idx + len("<Bind>")
	}
	if bindStart == -1 {
		return "", fmt.Errorf("missing <Bind> section under <Server> in template")
	}
	bindEnd := strings.Index(body[bindStart:], "</Bind>")
	if bindEnd == -1 {
		return "", fmt.Errorf("missing </Bind> in template")
	}
	bindEnd += bindStart

	bindBody := body[bindStart+len("<Bind>") : bindEnd]

	switch {
	case strings.Contains(bindBody, "<Address>"):
		bindBody, err = replaceFirst(bindBody, "Address", addr)
	case strings.Contains(bindBody, "<IP>"):
		bindBody, err = replaceFirst(bindBody, "IP", addr)
	}
	if err != nil {
		return "", err
	}

	if bindBody, err = replaceFirst(bindBody, "Port", port); err != nil {
		return "", err
	}
	if bindBody, err = replaceFirst(bindBody, "TLSPort", tlsPort); err != nil {
		return "", err
	}

	body = body[:bindStart+len("<Bind>")] + bindBody + body[bindEnd:]
	return text[:bodyStart] + body + text[bodyEnd:], nil
}

// replaceRootIP rewrites the root-level <IP> of the Server block: the
// first occurrence that is not nested inside any <Bind>, <Modules>, or
// <VirtualHosts> span. Templates without a root-level IP are left
// unchanged.
func replaceRootIP(text, ip string) (string, error) {
	bodyStart, bodyEnd, err := serverBody(text)
	if err != nil {
		return "", err
	}
	body := text[bodyStart:bodyEnd]

	excluded := [][2]int{}
	for _, tag := range []string{"Bind", "Modules", "VirtualHosts"} {
		excluded = append(excluded, tagSpans(body, tag)...)
	}

	offset := 0
	for {
		idx := strings.Index(body[offset:], "<IP>")
		if idx == -1 {
			return text, nil
		}
		idx += offset

		if insideAny(idx, excluded) {
			offset = idx + len("<IP>")
			continue
		}

		end := strings.Index(body[idx:], "</IP>")
		if end == -1 {
			return "", fmt.Errorf("missing </IP> in template")
		}

		body = body[:idx+len("<IP>")] + ip + body[idx+end:]
		return text[:bodyStart] + body + text[bodyEnd:], nil
	}
}

// tagSpan returns the span of the first <tag>...</tag> region in data,
// including the delimiters.
func tagSpan(data, tag string) ([2]int, bool) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"

	start := strings.Index(data, open)
	if start == -1 {
		return [2]int{}, false
	}
	end := strings.Index(data[start:], close)
	if end == -1 {
		return [2]int{}, false
	}

	return [2]int{start, start + end + len(close)}, true
}

// tagSpans returns every <tag>...</tag> span in data, in document order.
func tagSpans(data, tag string) [][2]int {
	var spans [][2]int
	offset := 0
	for {
		span, ok := tagSpan(data[offset:], tag)
		if !ok {
			return spans
		}
		spans = append(spans, [2]int{span[0] + offset, span[1] + offset})
		offset += span[1]
	}
}

func insideAny(idx int, spans [][2]int) bool {
	for _, s := range spans {
		if idx >= s[0] && idx < s[1] {
			return true
		}
	}
	return false
}

// replaceControlBindings rewrites the legacy <Modules><Control><Server>
// section retained by old templates. Bind, IP, and Address leaves under it
// all receive the bind address. The block, its nested section, and each of
// the tags are optional; whatever is absent is a no-op.
func replaceControlBindings(text, bind string) string {
	controlSpan, ok := tagSpan(text, "Control")
	if !ok {
		return text
	}
	control := text[controlSpan[0]:controlSpan[1]]

	serverSpan, ok := tagSpan(control, "Server")
	if !ok {
		// Unexpected legacy layout. Leave as-is rather than fail.
		return text
	}
	server := control[serverSpan[0]:serverSpan[1]]

	for _, tag := range []string{"Bind", "IP", "Address"} {
		if strings.Contains(server, "<"+tag+">") {
			server = replaceAllLeaf(server, tag, bind)
		}
	}

	control = control[:serverSpan[0]] + server + control[serverSpan[1]:]
	return text[:controlSpan[0]] + control + text[controlSpan[1]:]
}

// stripManagersAuth removes the managers-auth surface for image tags that
// predate it: every <AccessTokens> and <Authentication> block goes away
// entirely, and <Outputs> wrappers collapse to their inner
// <OutputProfiles> section, which is the pre-0.16 schema.
func stripManagersAuth(text string) string {
	text = accessTokensRe.ReplaceAllString(text, "")
	text = authenticationRe.ReplaceAllString(text, "")

	return outputsRe.ReplaceAllStringFunc(text, func(outputs string) string {
		inner := outputProfilesRe.FindString(outputs)
		if inner == "" {
			return outputs
		}
		return inner
	})
}

// escape makes a value safe for embedding in tagged text.
func escape(value string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return r.Replace(value)
}
