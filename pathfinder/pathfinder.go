// Package pathfinder locates the key files of a mixnode.
package pathfinder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ozontech/seq-registry/consts"
)

// Config overrides the default locations. Empty fields keep defaults.
type Config struct {
	ID               string `yaml:"id"`
	ConfigDir        string `yaml:"configDir"`
	PrivateSphinxKey string `yaml:"privateSphinxKey"`
	PublicSphinxKey  string `yaml:"publicSphinxKey"`
}

type PathFinder struct {
	ConfigDir        string
	PrivateSphinxKey string
	PublicSphinxKey  string
}

// New lays out <user config dir>/nym/mixnodes/<id>.
func New(id string) (PathFinder, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return PathFinder{}, fmt.Errorf("%w: bad node id %q", consts.ErrInvalidArgument, id)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return PathFinder{}, fmt.Errorf("can't find user config dir: %w", err)
	}
	return inDir(filepath.Join(base, "nym", "mixnodes", id)), nil
}

func NewFromConfig(cfg Config) (PathFinder, error) {
	var pf PathFinder
	if cfg.ConfigDir != "" {
		pf = inDir(cfg.ConfigDir)
	} else {
		var err error
		if pf, err = New(cfg.ID); err != nil {
			return PathFinder{}, err
		}
	}
	if cfg.PrivateSphinxKey != "" {
		pf.PrivateSphinxKey = cfg.PrivateSphinxKey
	}
	if cfg.PublicSphinxKey != "" {
		pf.PublicSphinxKey = cfg.PublicSphinxKey
	}
	return pf, nil
}

func inDir(dir string) PathFinder {
	return PathFinder{
		ConfigDir:        dir,
		PrivateSphinxKey: filepath.Join(dir, consts.PrivateKeyFileName),
		PublicSphinxKey:  filepath.Join(dir, consts.PublicKeyFileName),
	}
}

// Identity keys are the sphinx keys for now.

func (pf PathFinder) PrivateIdentityKey() string {
	return pf.PrivateSphinxKey
}

func (pf PathFinder) PublicIdentityKey() string {
	return pf.PublicSphinxKey
}

// PrivateEncryptionKey reports the encryption key path, mixnodes always have one.
func (pf PathFinder) PrivateEncryptionKey() (string, bool) {
	return pf.PrivateSphinxKey, true
}

func (pf PathFinder) PublicEncryptionKey() (string, bool) {
	return pf.PublicSphinxKey, true
}
