package assets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// Manifest is the parsed esbuild metafile for the client bundle. It answers
// two questions: which output files a page needs (in import order, so the
// browser can preload split chunks), and what the current asset version is.
type Manifest struct {
	Outputs map[string]Output `json:"outputs"`

	raw     []byte
	version string
}

type Output struct {
	EntryPoint string   `json:"entryPoint"`
	Imports    []Import `json:"imports"`
	CSSBundle  string   `json:"cssBundle"`
}

type Import struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// ParseManifest decodes a metafile and fingerprints it.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	m.raw = data
	h := crc64nvme.New()
	h.Write(data)
	m.version = base58.Encode(h.Sum(nil))

	return &m, nil
}

// LoadManifest reads a metafile from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metafile %s: %w", path, err)
	}
	return ParseManifest(data)
}

// Version is a short fingerprint of the built assets. It changes whenever
// any output changes, which is what drives stale-page detection in the page
// protocol.
func (m *Manifest) Version() string {
	return m.version
}

// Scripts returns the output paths needed to boot the given entry point: the
// entry output first, then its transitive chunk imports in discovery order.
func (m *Manifest) Scripts(entryPoint string) ([]string, error) {
	for outputPath, info := range m.Outputs {
		if info.EntryPoint != entryPoint {
			continue
		}

		scripts := []string{outputPath}
		visited := map[string]bool{outputPath: true}
		m.collectImports(info, &scripts, visited)
		return scripts, nil
	}

	return nil, fmt.Errorf("entrypoint %s not found in metafile", entryPoint)
}

// Styles returns the css bundles emitted for the entry point and its chunks.
func (m *Manifest) Styles(entryPoint string) ([]string, error) {
	scripts, err := m.Scripts(entryPoint)
	if err != nil {
		return nil, err
	}

	styles := []string{}
	seen := map[string]bool{}
	for _, script := range scripts {
		info := m.Outputs[script]
		if info.CSSBundle != "" && !seen[info.CSSBundle] {
			seen[info.CSSBundle] = true
			styles = append(styles, info.CSSBundle)
		}
	}
	return styles, nil
}

func (m *Manifest) collectImports(output Output, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		// external imports stay external; only follow emitted chunks
		if visited[imp.Path] {
			continue
		}
		chunk, ok := m.Outputs[imp.Path]
		if !ok {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, imp.Path)
		m.collectImports(chunk, scripts, visited)
	}
}
