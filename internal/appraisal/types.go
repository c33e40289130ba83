// Package appraisal holds the domain model for per-contributor repository
// appraisals: the contribution tree produced by analysis, the status-wrapped
// result envelope that is cached and served, and the queued job that asks a
// worker to produce one.
package appraisal

import (
	"fmt"
	"strings"
)

// Status tags an Appraisal as a usable result or a recorded failure.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ErrorType classifies a failed pipeline run.
type ErrorType string

const (
	ErrorCloneFailed     ErrorType = "clone_failed"
	ErrorAppraisalFailed ErrorType = "appraisal_failed"
)

// ProjectRef identifies a project well enough to build its cache key.
type ProjectRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r ProjectRef) Slug() string {
	return r.Owner + "/" + r.Name
}

func (r ProjectRef) Validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("project ref requires owner and name, got %q/%q", r.Owner, r.Name)
	}
	return nil
}

// CacheKey builds the root cache key for a project. The whole-project tree is
// always cached at this one key; subfolder requests extract from it instead of
// getting keys of their own. The trailing slash is part of the key.
func CacheKey(ref ProjectRef) string {
	return "appraisal:" + ref.Owner + "/" + ref.Name + "/"
}

// FileCredit is the per-file contribution record for a file that lives
// directly in a folder.
type FileCredit struct {
	Path        string             `json:"path"`
	LineCount   int                `json:"line_count"`
	Credits     float64            `json:"credits"`
	CreditShare map[string]float64 `json:"credit_share"`
}

// FolderNode is one node of the contribution tree. Subfolder order is
// structurally meaningful and must survive serialization round-trips.
type FolderNode struct {
	Path         string             `json:"path"`
	LineCount    int                `json:"line_count"`
	TotalCredits float64            `json:"total_credits"`
	CreditShare  map[string]float64 `json:"credit_share"`
	BaseFiles    []FileCredit       `json:"base_files"`
	Subfolders   []*FolderNode      `json:"subfolders"`
	Contributors []string           `json:"contributors"`
}

// NormalizePath strips exactly one leading and one trailing slash, so
// "app/domain/", "/app/domain" and "app/domain" name the same folder. The
// empty result names the project root.
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return p
}

// Appraisal is the immutable result of analyzing one project at one folder
// path. Exactly one of Folder or the error pair is populated, selected by
// Status.
type Appraisal struct {
	Status     Status
	Project    ProjectRef
	FolderPath string
	Folder     *FolderNode
	ErrorType  ErrorType
	Message    string
}

// NewSuccess wraps a whole-project contribution tree in a success envelope.
func NewSuccess(project ProjectRef, folder *FolderNode) *Appraisal {
	return &Appraisal{
		Status:  StatusOK,
		Project: project,
		Folder:  folder,
	}
}

// NewFailure records a pipeline failure so it can be cached and served like
// any other result.
func NewFailure(project ProjectRef, errType ErrorType, message string) *Appraisal {
	return &Appraisal{
		Status:    StatusError,
		Project:   project,
		ErrorType: errType,
		Message:   message,
	}
}

// ForFolder re-wraps a subtree extracted from this appraisal, keeping the
// envelope but rewriting the folder path to the matched folder.
func (a *Appraisal) ForFolder(path string, node *FolderNode) *Appraisal {
	return &Appraisal{
		Status:     a.Status,
		Project:    a.Project,
		FolderPath: path,
		Folder:     node,
	}
}

// Job is a unit of work placed on the queue. FolderPath is always "" because
// workers compute whole-project trees regardless of the folder the client
// asked for. ID is the client-visible correlation id and doubles as the
// progress channel name.
type Job struct {
	Project    ProjectRef `json:"project"`
	FolderPath string     `json:"folder_path"`
	ID         string     `json:"id"`
}

func (j Job) Validate() error {
	if err := j.Project.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("job requires a correlation id")
	}
	return nil
}
