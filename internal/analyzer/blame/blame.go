// Package blame analyzes a local checkout with git blame, attributing every
// line of every text file at HEAD to the author of the commit that last
// touched it.
package blame

import (
	"context"
	"fmt"
	"log"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"gitworth/internal/analyzer"
	"gitworth/internal/appraisal"
)

type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(ctx context.Context, ref appraisal.ProjectRef, checkoutPath string) (*appraisal.FolderNode, error) {
	repo, err := gogit.PlainOpen(checkoutPath)
	if err != nil {
		return nil, fmt.Errorf("open checkout for %s: %w", ref.Slug(), err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD for %s: %w", ref.Slug(), err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit for %s: %w", ref.Slug(), err)
	}
	files, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("walk HEAD tree for %s: %w", ref.Slug(), err)
	}

	var credits []appraisal.FileCredit
	err = files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fc, ok := creditFile(commit, f)
		if ok {
			credits = append(credits, fc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", ref.Slug(), err)
	}
	return analyzer.BuildTree(credits), nil
}

// creditFile blames one file and folds line ownership into a contribution
// record. Binary and unblameable files contribute nothing; skipping them is
// data hygiene, not an analysis failure.
func creditFile(commit *object.Commit, f *object.File) (appraisal.FileCredit, bool) {
	if binary, err := f.IsBinary(); err != nil || binary {
		return appraisal.FileCredit{}, false
	}
	result, err := gogit.Blame(commit, f.Name)
	if err != nil {
		log.Printf("blame: skipping %s: %v", f.Name, err)
		return appraisal.FileCredit{}, false
	}
	total := len(result.Lines)
	if total == 0 {
		return appraisal.FileCredit{}, false
	}

	linesByAuthor := make(map[string]int)
	for _, line := range result.Lines {
		linesByAuthor[line.Author]++
	}
	share := make(map[string]float64, len(linesByAuthor))
	for author, lines := range linesByAuthor {
		share[author] = float64(lines) / float64(total)
	}
	return appraisal.FileCredit{
		Path:        f.Name,
		LineCount:   total,
		Credits:     float64(total),
		CreditShare: share,
	}, true
}
