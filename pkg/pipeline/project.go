package pipeline

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/vtprint/vtp/pkg/cache"
	"github.com/vtprint/vtp/pkg/config"
	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/field"
)

// fingerprint is everything a transform result depends on besides the
// program itself.
type fingerprint struct {
	Config *config.Config     `json:"config"`
	Pairs  []field.Pair       `json:"pairs"`
	Meshes map[string]string `json:"meshes,omitempty"`
}

// ProjectHash hashes the resolved project: its settings, its field pairs
// (read from the equations file if there is one) and the contents of every
// mesh it references. Settings that cannot change the output, such as the
// worker count, are left out.
func ProjectHash(c *config.Config) (string, error) {
	pairs, err := c.Pairs()
	if err != nil {
		return "", err
	}
	meshes := make(map[string]string)
	for _, r := range c.Regions {
		for _, p := range meshPaths(r.Solid) {
			data, err := os.ReadFile(c.Path(p))
			if err != nil {
				return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "mesh %s", p)
			}
			meshes[p] = cache.Hash(data)
		}
	}

	cfg := *c
	cfg.Workers = 0
	cfg.Dir = ""
	data, err := json.Marshal(fingerprint{Config: &cfg, Pairs: pairs, Meshes: meshes})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode project")
	}
	return cache.Hash(data), nil
}

// meshPaths collects the "path" entries of a solid table and its children.
func meshPaths(solid map[string]any) []string {
	var paths []string
	if p, ok := solid["path"].(string); ok && p != "" {
		paths = append(paths, p)
	}
	if children, ok := solid["children"].([]any); ok {
		for _, c := range children {
			if m, ok := c.(map[string]any); ok {
				paths = append(paths, meshPaths(m)...)
			}
		}
	}
	if children, ok := solid["children"].([]map[string]any); ok {
		for _, m := range children {
			paths = append(paths, meshPaths(m)...)
		}
	}
	sort.Strings(paths)
	return paths
}
