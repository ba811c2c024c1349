package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	extensionPrefixConstant          = "."
	rootUnresolvableTemplateConstant = "unable to resolve root %s: %w"
)

// Directories that never contain auditable documents.
var skippedDirectoryNames = map[string]struct{}{
	".git":          {},
	".venv":         {},
	"node_modules":  {},
	"__pycache__":   {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"dist":          {},
	"build":         {},
}

// DocumentFilter restricts which files a discovery walk yields.
type DocumentFilter struct {
	Extensions      []string
	ExcludePatterns []string

	normalizedExtensions map[string]struct{}
}

// NewDocumentFilter normalizes the provided extensions and exclude patterns into a reusable filter.
func NewDocumentFilter(extensions []string, excludePatterns []string) DocumentFilter {
	normalized := make(map[string]struct{}, len(extensions))
	kept := make([]string, 0, len(extensions))
	for _, extension := range extensions {
		normalizedExtension := NormalizeExtension(extension)
		if len(normalizedExtension) == 0 {
			continue
		}
		if _, exists := normalized[normalizedExtension]; exists {
			continue
		}
		normalized[normalizedExtension] = struct{}{}
		kept = append(kept, normalizedExtension)
	}

	duplicatedPatterns := make([]string, len(excludePatterns))
	copy(duplicatedPatterns, excludePatterns)

	return DocumentFilter{
		Extensions:           kept,
		ExcludePatterns:      duplicatedPatterns,
		normalizedExtensions: normalized,
	}
}

// NormalizeExtension lowercases an extension and guarantees a leading dot.
func NormalizeExtension(extension string) string {
	trimmed := strings.ToLower(strings.TrimSpace(extension))
	if len(trimmed) == 0 {
		return ""
	}
	if !strings.HasPrefix(trimmed, extensionPrefixConstant) {
		trimmed = extensionPrefixConstant + trimmed
	}
	if trimmed == extensionPrefixConstant {
		return ""
	}
	return trimmed
}

// Includes reports whether the filter admits the provided path.
func (filter DocumentFilter) Includes(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	if _, allowed := filter.normalizedExtensions[extension]; !allowed {
		return false
	}
	return !filter.excluded(path)
}

func (filter DocumentFilter) excluded(path string) bool {
	slashPath := filepath.ToSlash(path)
	for _, pattern := range filter.ExcludePatterns {
		matched, matchError := doublestar.Match(pattern, slashPath)
		if matchError == nil && matched {
			return true
		}
	}
	return false
}

// FilesystemDocumentDiscoverer locates auditable documents on disk.
type FilesystemDocumentDiscoverer struct{}

// NewFilesystemDocumentDiscoverer constructs a document discoverer backed by filepath.WalkDir.
func NewFilesystemDocumentDiscoverer() *FilesystemDocumentDiscoverer {
	return &FilesystemDocumentDiscoverer{}
}

// DiscoverDocuments walks the provided roots and returns files admitted by the filter.
func (discoverer *FilesystemDocumentDiscoverer) DiscoverDocuments(roots []string, filter DocumentFilter) ([]string, error) {
	seen := make(map[string]struct{})
	var documents []string

	for _, root := range roots {
		rootInformation, statError := os.Stat(root)
		if statError != nil {
			return nil, fmt.Errorf(rootUnresolvableTemplateConstant, root, statError)
		}

		if !rootInformation.IsDir() {
			if filter.Includes(root) {
				appendDocument(&documents, seen, root)
			}
			continue
		}

		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, entryError error) error {
			if entryError != nil {
				return nil
			}

			if directoryEntry.IsDir() {
				if _, skipped := skippedDirectoryNames[strings.ToLower(directoryEntry.Name())]; skipped {
					return fs.SkipDir
				}
				return nil
			}

			if filter.Includes(path) {
				appendDocument(&documents, seen, path)
			}
			return nil
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(documents)
	return documents, nil
}

func appendDocument(documents *[]string, seen map[string]struct{}, path string) {
	if _, alreadySeen := seen[path]; alreadySeen {
		return
	}
	seen[path] = struct{}{}
	*documents = append(*documents, path)
}
