package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"docsync/internal/store"
)

var ErrPathTemplate = errors.New("invalid folder path template")

// PathSegment describes one level of the case folder hierarchy. Either Name is
// fixed, or Source is "case" and the segment name is derived from the case
// reference. Type, when set, is the store object type the folder is created with.
type PathSegment struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
}

// PathTemplate is the ordered list of segments from the store root down to the
// case folder leaf.
type PathTemplate struct {
	Segments []PathSegment `yaml:"segments"`
}

// DefaultPathTemplate is the built-in two-level layout: a fixed "Cases" root
// with one case folder per case reference under it.
func DefaultPathTemplate() PathTemplate {
	return PathTemplate{Segments: []PathSegment{
		{Name: "Cases", Type: store.TypeFolder},
		{Source: "case", Type: store.TypeCaseFolder},
	}}
}

// LoadPathTemplate reads a path template from a YAML file.
func LoadPathTemplate(path string) (PathTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PathTemplate{}, fmt.Errorf("read folder template: %w", err)
	}
	var tmpl PathTemplate
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		return PathTemplate{}, fmt.Errorf("parse folder template: %w", err)
	}
	if len(tmpl.Segments) == 0 {
		return PathTemplate{}, fmt.Errorf("%w: no segments", ErrPathTemplate)
	}
	return tmpl, nil
}

// FolderResolver computes and creates the folder chain for a case reference.
// The same case reference always yields the same path.
type FolderResolver interface {
	// ResolveCaseFolder walks the template root to leaf, creating missing
	// folders on the way, and returns the case folder.
	ResolveCaseFolder(ctx context.Context, caseRef string) (store.Folder, error)

	// CaseFolderPath returns the absolute store path for the case reference
	// without touching the store.
	CaseFolderPath(caseRef string) (string, error)
}

type folderResolver struct {
	gateway store.Gateway
	tmpl    PathTemplate
}

// NewFolderResolver constructs a FolderResolver over the given template. A
// template without segments has no case folder leaf and is rejected here
// rather than on first use.
func NewFolderResolver(gateway store.Gateway, tmpl PathTemplate) (FolderResolver, error) {
	if len(tmpl.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrPathTemplate)
	}
	return &folderResolver{gateway: gateway, tmpl: tmpl}, nil
}

func (r *folderResolver) segmentName(seg PathSegment, caseRef string) (string, error) {
	if seg.Source == "case" {
		name := Slugify(caseRef)
		if name == "" {
			return "", fmt.Errorf("%w: case reference %q slugifies to nothing", ErrPathTemplate, caseRef)
		}
		return name, nil
	}
	if seg.Name == "" {
		return "", fmt.Errorf("%w: segment has neither a fixed name nor a case source", ErrPathTemplate)
	}
	return seg.Name, nil
}

func (r *folderResolver) ResolveCaseFolder(ctx context.Context, caseRef string) (store.Folder, error) {
	var parent *store.Folder
	for _, seg := range r.tmpl.Segments {
		name, err := r.segmentName(seg, caseRef)
		if err != nil {
			return store.Folder{}, err
		}
		folder, _, err := r.gateway.ResolveFolder(ctx, name, seg.Type, parent)
		if err != nil {
			return store.Folder{}, fmt.Errorf("resolve folder %q: %w", name, err)
		}
		parent = &folder
	}
	return *parent, nil
}

func (r *folderResolver) CaseFolderPath(caseRef string) (string, error) {
	parts := make([]string, 0, len(r.tmpl.Segments))
	for _, seg := range r.tmpl.Segments {
		name, err := r.segmentName(seg, caseRef)
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
	}
	return "/" + strings.Join(parts, "/"), nil
}

// Slugify reduces a case reference to a folder-safe name: lowercase letters
// and digits kept, whitespace collapsed to hyphens, everything else dropped.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = true
		}
	}
	return b.String()
}
