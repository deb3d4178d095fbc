package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/statebox/internal/ir"
)

// LoadDir loads the CUE package in dir as a single value.
func LoadDir(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("building CUE value: %w", formatCUEError(err))
	}
	return value, nil
}

// LoadFiles compiles each file and unifies the results. Files need not
// share a directory or declare a package.
func LoadFiles(paths ...string) (cue.Value, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString("{}")

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("reading %s: %w", path, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(filepath.Base(path)))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		value = value.Unify(v)
	}

	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// CompileDir loads dir and compiles its slices.
func CompileDir(dir string) ([]ir.SliceSpec, error) {
	v, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileSlices(v)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
