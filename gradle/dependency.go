// Package gradle holds recipes for Gradle build scripts written in Groovy.
package gradle

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

// IsBuildGradle holds for Groovy build scripts named build.gradle.
func IsBuildGradle() rewrite.Visitor {
	return rewrite.And(rewrite.HasSourcePath("**/build.gradle"), cst.IsLanguage("groovy"))
}

// Dependency is a dependency coordinate in string notation,
// group:artifact[:version[:classifier]][@extension].
type Dependency struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

// ParseDependency parses string notation. It reports false when s has no
// group and artifact, or too many parts.
func ParseDependency(s string) (Dependency, bool) {
	var d Dependency
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		d.Extension = s[at+1:]
		s = s[:at]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return Dependency{}, false
	}
	d.Group, d.Artifact = parts[0], parts[1]
	if len(parts) > 2 {
		d.Version = parts[2]
	}
	if len(parts) > 3 {
		d.Classifier = parts[3]
	}
	return d, true
}

// String returns the string notation of d.
func (d Dependency) String() string {
	var sb strings.Builder
	sb.WriteString(d.Group)
	sb.WriteByte(':')
	sb.WriteString(d.Artifact)
	if d.Version != "" || d.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(d.Version)
	}
	if d.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(d.Classifier)
	}
	if d.Extension != "" {
		sb.WriteByte('@')
		sb.WriteString(d.Extension)
	}
	return sb.String()
}

// WithClassifier returns d with its classifier replaced. An empty classifier
// removes it.
func (d Dependency) WithClassifier(classifier string) Dependency {
	d.Classifier = classifier
	return d
}

// DependencyMatcher matches coordinates against group:artifact[:version]
// glob patterns.
type DependencyMatcher struct {
	group    string
	artifact string
	version  string
}

// NewDependencyMatcher compiles a group:artifact[:version] pattern.
func NewDependencyMatcher(pattern string) (*DependencyMatcher, error) {
	parts := strings.Split(pattern, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("gradle: dependency pattern %q must be group:artifact[:version]", pattern)
	}
	m := &DependencyMatcher{group: parts[0], artifact: parts[1]}
	if len(parts) == 3 {
		m.version = parts[2]
	}
	if m.group == "" || m.artifact == "" {
		return nil, fmt.Errorf("gradle: dependency pattern %q has an empty group or artifact", pattern)
	}
	for _, p := range []string{m.group, m.artifact, m.version} {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("gradle: dependency pattern %q: %q is not a valid glob", pattern, p)
		}
	}
	return m, nil
}

// Matches reports whether group and artifact match. The version is checked
// only when both the pattern and version have one.
func (m *DependencyMatcher) Matches(group, artifact, version string) bool {
	if !match(m.group, group) || !match(m.artifact, artifact) {
		return false
	}
	if m.version == "" || version == "" {
		return true
	}
	return match(m.version, version)
}

func match(pattern, s string) bool {
	ok, err := doublestar.Match(pattern, s)
	return err == nil && ok
}
