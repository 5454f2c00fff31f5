package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/ccdb/internal/model"
)

// LoadMode controls how errors are handled while loading a directory.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult holds the tables found in a definitions directory.
type LoadResult struct {
	Tables    []model.TypeTable
	FileCount int
}

// LoadDir compiles every .cue file under dir. Tables are returned sorted by
// path; a path defined twice is an error.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("definitions directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	compiler := NewCompiler()
	result := &LoadResult{FileCount: len(files)}
	definedIn := make(map[string]string)
	var errs []error

	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", file, err))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		tables, err := compiler.CompileSource(file, src)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for _, table := range tables {
			if prev, dup := definedIn[table.Path]; dup {
				errs = append(errs, fmt.Errorf("%s: table %s already defined in %s", file, table.Path, prev))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			definedIn[table.Path] = file
			result.Tables = append(result.Tables, table)
		}
	}

	sort.Slice(result.Tables, func(i, j int) bool {
		return result.Tables[i].Path < result.Tables[j].Path
	})
	if len(result.Tables) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("no tables defined in %s", dir))
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths in lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
