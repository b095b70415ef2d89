package links

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"handbook/app/internal/domain/content"
)

// LangPlaceholder is substituted with the page language in a rule target.
const LangPlaceholder = "{lang}"

// ErrNonIdempotentRules indicates a rule rewrites into a path another rule would rewrite again.
var ErrNonIdempotentRules = eris.New("legacy link rules are not idempotent")

// Rule maps a legacy path prefix to its current location.
type Rule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules moves the legacy /old/ tree under the page language.
var DefaultRules = []Rule{
	{From: "/old/", To: "/" + LangPlaceholder + "/"},
}

var (
	inlineLinkPattern   = regexp.MustCompile(`\]\(\s*<?([^\s()<>]+)`)
	referenceDefPattern = regexp.MustCompile(`(?m)^ {0,3}\[[^\]\n]+\]:[ \t]*<?([^\s<>]+)`)
	htmlAttrPattern     = regexp.MustCompile(`(?i)\b(?:href|src)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	legacyExtensions    = []string{".html", ".htm", ".md"}
)

// Rewriter rewrites legacy link destinations in Markdown and raw HTML bodies.
type Rewriter struct {
	rules []Rule
}

var _ content.LinkRewriter = (*Rewriter)(nil)

// LoadRules reads a YAML rule file of the form `rules: [{from: ..., to: ...}]`.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading legacy link rules: %s", path)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "decoding legacy link rules: %s", path)
	}

	return file.Rules, nil
}

// NewRewriter validates rules against the configured languages. Rules are
// rejected when the output of one would be matched by another, so that
// rewriting already rewritten content is a no-op.
func NewRewriter(rules []Rule, langs []content.Lang) (*Rewriter, error) {
	cleaned := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		from := strings.TrimSpace(rule.From)
		to := strings.TrimSpace(rule.To)
		if from == "" {
			return nil, eris.New("legacy link rule is missing from")
		}
		if to == "" {
			return nil, eris.Errorf("legacy link rule %s is missing to", from)
		}
		cleaned = append(cleaned, Rule{From: from, To: to})
	}

	// Longest prefix wins.
	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i].From) > len(cleaned[j].From)
	})

	samples := make([]string, 0, len(langs))
	for _, lang := range langs {
		samples = append(samples, string(lang))
	}
	if len(samples) == 0 {
		samples = append(samples, LangPlaceholder)
	}

	for _, rule := range cleaned {
		for _, lang := range samples {
			output := strings.ReplaceAll(rule.To, LangPlaceholder, lang)
			for _, other := range cleaned {
				if matchesPrefix(output+"page", other.From) || strings.HasPrefix(other.From, output) {
					return nil, eris.Wrapf(ErrNonIdempotentRules, "%s -> %s is rewritten again by %s", rule.From, output, other.From)
				}
			}
		}
	}

	return &Rewriter{rules: cleaned}, nil
}

// Rules returns the active rules, longest prefix first.
func (r *Rewriter) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// RewriteLinks rewrites link destinations in inline Markdown links, reference
// definitions and raw HTML href/src attributes. Code blocks and code spans are
// left untouched, as is everything outside a destination.
func (r *Rewriter) RewriteLinks(body string, lang content.Lang) string {
	if len(r.rules) == 0 || body == "" {
		return body
	}

	targets := destinations(body)
	if len(targets) == 0 {
		return body
	}

	code := codeSpans(body)

	var builder strings.Builder
	builder.Grow(len(body))
	last := 0

	for _, target := range targets {
		if target.start < last || insideAny(code, target.start, target.stop) {
			continue
		}
		builder.WriteString(body[last:target.start])
		builder.WriteString(r.RewriteTarget(body[target.start:target.stop], lang))
		last = target.stop
	}

	builder.WriteString(body[last:])
	return builder.String()
}

// RewriteTarget rewrites a single link destination. Query strings and
// fragments are preserved; legacy file extensions are dropped from rewritten paths.
func (r *Rewriter) RewriteTarget(target string, lang content.Lang) string {
	path, suffix := splitSuffix(target)

	for _, rule := range r.rules {
		if !matchesPrefix(path, rule.From) {
			continue
		}

		rest := path[len(rule.From):]
		to := strings.ReplaceAll(rule.To, LangPlaceholder, string(lang))
		if strings.HasSuffix(to, "/") && strings.HasPrefix(rest, "/") {
			rest = rest[1:]
		}

		return stripLegacyExtension(to+rest) + suffix
	}

	return target
}

func matchesPrefix(path, from string) bool {
	if path == from {
		return true
	}
	if !strings.HasPrefix(path, from) {
		return false
	}
	if strings.HasSuffix(from, "/") {
		return true
	}
	return path[len(from)] == '/'
}

func splitSuffix(target string) (string, string) {
	if idx := strings.IndexAny(target, "?#"); idx >= 0 {
		return target[:idx], target[idx:]
	}
	return target, ""
}

func stripLegacyExtension(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range legacyExtensions {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// destinations collects the link destination ranges matched by every
// pattern, ordered by offset.
func destinations(body string) []span {
	var found []span
	for _, pattern := range []*regexp.Regexp{inlineLinkPattern, referenceDefPattern, htmlAttrPattern} {
		for _, match := range pattern.FindAllStringSubmatchIndex(body, -1) {
			for group := 1; group*2+1 < len(match); group++ {
				if match[group*2] >= 0 {
					found = append(found, span{start: match[group*2], stop: match[group*2+1]})
					break
				}
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}
