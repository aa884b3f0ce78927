package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// dirPolicySource is the filesystem-backed collab.PolicyFileSource this
// command wires in: every "*.unet" file directly under Dir is one policy
// file.
type dirPolicySource struct {
	Dir string
}

func (d dirPolicySource) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "cmd.policysource.list", "failed to read policy directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".unet" {
			continue
		}
		paths = append(paths, filepath.Join(d.Dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (d dirPolicySource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "cmd.policysource.read", "failed to read policy file "+path, err)
	}
	return data, nil
}

func (d dirPolicySource) LastModified(ctx context.Context, path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.KindIO, "cmd.policysource.stat", "failed to stat policy file "+path, err)
	}
	return info.ModTime(), nil
}

var _ collab.PolicyFileSource = dirPolicySource{}
