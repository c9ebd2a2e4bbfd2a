package linkcheck

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/linkmedic/pkg/finding"
)

// FileResult is the outcome of checking one file in a batch.
type FileResult struct {
	Path     string            `json:"path"            yaml:"path"`
	Findings []finding.Finding `json:"findings"        yaml:"findings"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary totals a batch.
type Summary struct {
	Files    int `json:"files"    yaml:"files"`
	Findings int `json:"findings" yaml:"findings"`
	Errors   int `json:"errors"   yaml:"errors"`
}

// Summarize totals results.
func Summarize(results []FileResult) Summary {
	summary := Summary{Files: len(results)}

	for _, result := range results {
		summary.Findings += len(result.Findings)

		if result.Error != "" {
			summary.Errors++
		}
	}

	return summary
}

// CheckFiles checks files under root concurrently and returns one result
// per checked file in input order. Unsupported files are left out;
// unreadable files carry their error. Only cancellation aborts the batch.
func (c *Checker) CheckFiles(ctx context.Context, files []string, root string) ([]FileResult, error) {
	results := make([]FileResult, len(files))
	skipped := make([]bool, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for i, path := range files {
		group.Go(func() error {
			findings, err := c.CheckFile(groupCtx, path, root)

			switch {
			case err == nil:
				results[i] = FileResult{Path: path, Findings: findings}
			case errors.Is(err, ErrUnsupportedFile):
				skipped[i] = true
			case groupCtx.Err() != nil:
				return groupCtx.Err()
			default:
				c.logger.WarnContext(groupCtx, "check failed", "path", path, "error", err)

				results[i] = FileResult{Path: path, Error: err.Error()}
			}

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	kept := results[:0]

	for i, result := range results {
		if !skipped[i] {
			kept = append(kept, result)
		}
	}

	return kept, nil
}
