package terraform

import (
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

var (
	moduleBlockPattern = regexp.MustCompile(`(?s)module\s+"([^"]+)"\s*\{([^}]*)}`)
	sourceAttrPattern  = regexp.MustCompile(`source\s*=\s*"([^"]+)"`)
	versionAttrPattern = regexp.MustCompile(`version\s*=\s*"([^"]+)"`)
	refPattern         = regexp.MustCompile(`[?&]ref=([^&\s"]+)`)
)

// ModuleReference is a pinned module call found in a Terraform file.
type ModuleReference struct {
	Label   string // module block label
	Name    string // source without the pinned ref, used as the dependency name
	Version string
	Line    int
}

// ScanModules extracts the pinned module calls of a Terraform file. Git
// sources are pinned by ?ref=, registry sources by the version attribute.
// Files HCL cannot parse fall back to pattern matching.
func ScanModules(content []byte, filename string) []ModuleReference {
	file, diags := hclparse.NewParser().ParseHCL(content, filename)
	if diags.HasErrors() || file.Body == nil {
		return scanWithPatterns(string(content))
	}

	body, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "module", LabelNames: []string{"name"}}},
	})
	if diags.HasErrors() {
		return scanWithPatterns(string(content))
	}

	var refs []ModuleReference
	for _, block := range body.Blocks {
		attrs, _ := block.Body.JustAttributes()
		source, ok := stringAttr(attrs, "source")
		if !ok {
			continue
		}
		version, _ := stringAttr(attrs, "version")
		if ref, pinned := pin(block.Labels[0], source, version); pinned {
			ref.Line = block.DefRange.Start.Line
			refs = append(refs, ref)
		}
	}
	return refs
}

func stringAttr(attrs hcl.Attributes, name string) (string, bool) {
	attr, ok := attrs[name]
	if !ok {
		return "", false
	}
	value, diags := attr.Expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() || value.IsNull() || value.Type() != cty.String {
		return "", false
	}
	return value.AsString(), true
}

func scanWithPatterns(content string) []ModuleReference {
	var refs []ModuleReference
	for _, match := range moduleBlockPattern.FindAllStringSubmatchIndex(content, -1) {
		label := content[match[2]:match[3]]
		block := content[match[4]:match[5]]
		source := sourceAttrPattern.FindStringSubmatch(block)
		if source == nil {
			continue
		}
		version := ""
		if v := versionAttrPattern.FindStringSubmatch(block); v != nil {
			version = v[1]
		}
		if ref, pinned := pin(label, source[1], version); pinned {
			ref.Line = strings.Count(content[:match[0]], "\n") + 1
			refs = append(refs, ref)
		}
	}
	return refs
}

// pin resolves the version of a module call. Local paths are never pinned.
func pin(label, source, version string) (ModuleReference, bool) {
	if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		return ModuleReference{}, false
	}
	if isGitSource(source) {
		match := refPattern.FindStringSubmatch(source)
		if match == nil {
			return ModuleReference{}, false
		}
		return ModuleReference{Label: label, Name: ModuleName(source), Version: match[1]}, true
	}
	if version == "" {
		return ModuleReference{}, false
	}
	return ModuleReference{Label: label, Name: source, Version: version}, true
}

func isGitSource(source string) bool {
	return strings.HasPrefix(source, "git::") ||
		strings.HasPrefix(source, "git@") ||
		strings.Contains(source, "github.com") ||
		strings.Contains(source, "gitlab.com") ||
		strings.Contains(source, "bitbucket.org") ||
		strings.Contains(source, "dev.azure.com") ||
		strings.Contains(source, "_git/")
}

// ModuleName strips the git:: forcing prefix, the URL scheme and the ref query.
func ModuleName(source string) string {
	name := strings.TrimPrefix(source, "git::")
	for _, scheme := range []string{"https://", "http://", "ssh://"} {
		name = strings.TrimPrefix(name, scheme)
	}
	return refPattern.ReplaceAllString(name, "")
}
