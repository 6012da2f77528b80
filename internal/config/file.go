package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// ErrNotConfigured is returned by the Get* methods when the backing file
// has never been written.
var ErrNotConfigured = errors.New("config: not yet configured")

// FileProvider keeps host.json, cluster.json and mode.json as sibling files
// under Dir, following the same "read whole file, decode, re-encode, rename
// into place" pattern the teacher uses for its ron state file.
type FileProvider struct {
	Dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

func (p *FileProvider) hostPath() string    { return filepath.Join(p.Dir, "host.json") }
func (p *FileProvider) clusterPath() string { return filepath.Join(p.Dir, "cluster.json") }
func (p *FileProvider) modePath() string    { return filepath.Join(p.Dir, "mode.json") }

func (p *FileProvider) GetMode() (Mode, error) {
	var m Mode
	if err := readJSON(p.modePath(), &m); err != nil {
		return "", err
	}
	return m, nil
}

func (p *FileProvider) SetMode(m Mode) error {
	return writeJSON(p.modePath(), m)
}

func (p *FileProvider) GetHostConfig() (*types.ClusterHostConfig, error) {
	var h types.ClusterHostConfig
	if err := readJSON(p.hostPath(), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (p *FileProvider) SetHostConfig(h *types.ClusterHostConfig) error {
	return writeJSON(p.hostPath(), h)
}

func (p *FileProvider) GetClusterConfig() (*types.TestbedClusterConfig, error) {
	var c types.TestbedClusterConfig
	if err := readJSON(p.clusterPath(), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *FileProvider) SetClusterConfig(c *types.TestbedClusterConfig) error {
	return writeJSON(p.clusterPath(), c)
}

func readJSON(path string, v interface{}) error {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotConfigured
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals v and renames it into place so a crash mid-write never
// leaves path holding a truncated document.
func writeJSON(path string, v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, body, os.FileMode(0640)); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}

	return os.Rename(tmp, path)
}
