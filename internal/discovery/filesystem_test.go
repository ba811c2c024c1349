package discovery_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenaudit/internal/discovery"
)

const (
	discoverySubtestNameTemplateConstant       = "%d_%s"
	discoveryCaseMarkdownOnlyConstant          = "markdown_only"
	discoveryCaseSkipsCacheDirectoriesConstant = "skips_cache_directories"
	discoveryCaseExcludePatternConstant        = "exclude_pattern"
	discoveryCaseSingleFileRootConstant        = "single_file_root"
	discoveryCaseMissingRootConstant           = "missing_root"
	discoveryTestFileContentConstant           = "sample document body\n"
)

type discoveryFixtureFile struct {
	relativePath string
}

func writeFixtureFiles(testInstance *testing.T, rootDirectory string, fixtureFiles []discoveryFixtureFile) {
	testInstance.Helper()
	for _, fixtureFile := range fixtureFiles {
		absolutePath := filepath.Join(rootDirectory, filepath.FromSlash(fixtureFile.relativePath))
		directoryError := os.MkdirAll(filepath.Dir(absolutePath), 0o755)
		require.NoError(testInstance, directoryError)
		writeError := os.WriteFile(absolutePath, []byte(discoveryTestFileContentConstant), 0o600)
		require.NoError(testInstance, writeError)
	}
}

func TestFilesystemDocumentDiscovererDiscoverDocuments(testInstance *testing.T) {
	testCases := []struct {
		name              string
		fixtureFiles      []discoveryFixtureFile
		extensions        []string
		excludePatterns   []string
		expectedRelatives []string
	}{
		{
			name: discoveryCaseMarkdownOnlyConstant,
			fixtureFiles: []discoveryFixtureFile{
				{relativePath: "README.md"},
				{relativePath: "notes.txt"},
				{relativePath: "binary.bin"},
			},
			extensions:        []string{".md"},
			expectedRelatives: []string{"README.md"},
		},
		{
			name: discoveryCaseSkipsCacheDirectoriesConstant,
			fixtureFiles: []discoveryFixtureFile{
				{relativePath: "docs/guide.md"},
				{relativePath: "node_modules/package/readme.md"},
				{relativePath: ".git/config.md"},
				{relativePath: "__pycache__/cache.md"},
			},
			extensions:        []string{"md"},
			expectedRelatives: []string{"docs/guide.md"},
		},
		{
			name: discoveryCaseExcludePatternConstant,
			fixtureFiles: []discoveryFixtureFile{
				{relativePath: "docs/guide.md"},
				{relativePath: "docs/archive/old.md"},
			},
			extensions:        []string{".md"},
			excludePatterns:   []string{"**/archive/**"},
			expectedRelatives: []string{"docs/guide.md"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(discoverySubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			rootDirectory := testInstance.TempDir()
			writeFixtureFiles(testInstance, rootDirectory, testCase.fixtureFiles)

			filter := discovery.NewDocumentFilter(testCase.extensions, testCase.excludePatterns)
			discoverer := discovery.NewFilesystemDocumentDiscoverer()

			documents, discoveryError := discoverer.DiscoverDocuments([]string{rootDirectory}, filter)
			require.NoError(testInstance, discoveryError)

			expectedDocuments := make([]string, 0, len(testCase.expectedRelatives))
			for _, expectedRelative := range testCase.expectedRelatives {
				expectedDocuments = append(expectedDocuments, filepath.Join(rootDirectory, filepath.FromSlash(expectedRelative)))
			}
			require.Equal(testInstance, expectedDocuments, documents)
		})
	}
}

func TestFilesystemDocumentDiscovererSingleFileRoot(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	writeFixtureFiles(testInstance, rootDirectory, []discoveryFixtureFile{{relativePath: "README.md"}})
	documentPath := filepath.Join(rootDirectory, "README.md")

	filter := discovery.NewDocumentFilter([]string{".md"}, nil)
	discoverer := discovery.NewFilesystemDocumentDiscoverer()

	documents, discoveryError := discoverer.DiscoverDocuments([]string{documentPath}, filter)
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{documentPath}, documents)

	mismatchedFilter := discovery.NewDocumentFilter([]string{".txt"}, nil)
	documents, discoveryError = discoverer.DiscoverDocuments([]string{documentPath}, mismatchedFilter)
	require.NoError(testInstance, discoveryError)
	require.Empty(testInstance, documents)
}

func TestFilesystemDocumentDiscovererMissingRoot(testInstance *testing.T) {
	missingRoot := filepath.Join(testInstance.TempDir(), "does-not-exist")

	filter := discovery.NewDocumentFilter([]string{".md"}, nil)
	discoverer := discovery.NewFilesystemDocumentDiscoverer()

	documents, discoveryError := discoverer.DiscoverDocuments([]string{missingRoot}, filter)
	require.Error(testInstance, discoveryError)
	require.Nil(testInstance, documents)
}

func TestNormalizeExtension(testInstance *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "adds_leading_dot", raw: "md", expected: ".md"},
		{name: "lowercases", raw: ".MD", expected: ".md"},
		{name: "trims_whitespace", raw: "  .txt ", expected: ".txt"},
		{name: "rejects_empty", raw: "   ", expected: ""},
		{name: "rejects_bare_dot", raw: ".", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(discoverySubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, discovery.NormalizeExtension(testCase.raw))
		})
	}
}
